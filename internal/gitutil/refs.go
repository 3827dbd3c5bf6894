package gitutil

import "regexp"

// jiraRefPattern matches issue keys embedded in free text: a project prefix
// of uppercase letters/digits followed by a dash and a number, e.g. ABC-123.
var jiraRefPattern = regexp.MustCompile(`[A-Z][A-Z0-9]+-\d+`)

// ExtractJiraRefs returns the distinct issue keys found in text, in the
// order they first appear.
func ExtractJiraRefs(text string) []string {
	found := jiraRefPattern.FindAllString(text, -1)
	if len(found) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(found))
	refs := make([]string, 0, len(found))
	for _, ref := range found {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}
