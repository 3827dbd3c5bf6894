// Package jira talks to the issue tracker: duplicate detection against
// existing issues, connection checks, and ticket creation.
//
// Every free-text fragment that ends up inside a JQL query goes through
// SanitizeJQL first, and project keys are validated before interpolation.
// Neither is a correctness feature; both exist so repo names, branch names,
// and commit subjects lifted from arbitrary working trees cannot change the
// shape of a query.
package jira

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)
	jqlKeywordPattern = regexp.MustCompile(`(?i)\b(AND|OR|NOT|ORDER|BY|IN|IS)\b`)
	spaceRun          = regexp.MustCompile(`\s{2,}`)
)

// SanitizeJQL prepares a free-text fragment for embedding inside a quoted
// JQL string: control characters are stripped, backslashes and quotes are
// escaped, and standalone JQL keyword tokens are removed.
func SanitizeJQL(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	out := jqlKeywordPattern.ReplaceAllString(b.String(), " ")
	out = strings.ReplaceAll(out, `\`, `\\`)
	out = strings.ReplaceAll(out, `"`, `\"`)
	out = spaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// ValidProjectKey reports whether key is a well-formed Jira project key.
func ValidProjectKey(key string) bool {
	return projectKeyPattern.MatchString(key)
}

func checkProjectKey(key string) error {
	if !ValidProjectKey(key) {
		return fmt.Errorf("invalid project key %q", key)
	}
	return nil
}
