package suggester

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// suggestionID derives the stable ticket identity from the ordered
// grouping key (repo, branch, [week], [area]). Identical inputs always
// produce identical IDs; downstream de-duplication depends on this.
func suggestionID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "-")))
	return hex.EncodeToString(sum[:])[:12]
}
