package jira

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/devpulse/devpulse/internal/types"
)

// Searcher is the tracker search surface the Matcher depends on. The
// production implementation is *Client; tests substitute a fake.
type Searcher interface {
	SearchIssues(ctx context.Context, jql string, maxResults int) ([]types.ExistingJiraMatch, error)
}

const (
	summaryQueryLen   = 60
	maxSHAQueries     = 5
	shaPrefixLen      = 7
	minSHALen         = 6
	summaryWindowDays = 60
)

var bracketPrefix = regexp.MustCompile(`^\[[^\]]*\]\s*`)

// defaultBranchNames are never used as a branch search term; they match
// far too many issues to mean anything.
var defaultBranchNames = map[string]bool{
	"main":        true,
	"master":      true,
	"develop":     true,
	"development": true,
}

// Matcher detects existing tracker issues that already cover a
// suggestion's work. Individual searches are best-effort: a failing query
// contributes no matches instead of failing the check.
type Matcher struct {
	searcher Searcher
}

// NewMatcher creates a Matcher over the given search backend.
func NewMatcher(searcher Searcher) *Matcher {
	return &Matcher{searcher: searcher}
}

// CheckDuplicate searches for issues that look like they already track the
// work behind a candidate summary. Strategies run in order: summary-text
// similarity over recently created issues, then commit-SHA echoes in issue
// descriptions. Matches merge by issue key, first seen wins.
func (m *Matcher) CheckDuplicate(ctx context.Context, summary, projectKey string, commitSHAs []string) (types.DuplicateCheckResult, error) {
	if err := checkProjectKey(projectKey); err != nil {
		return types.DuplicateCheckResult{Confidence: types.ConfidenceNone}, err
	}

	merged := newMatchSet()

	if term := summaryTerm(summary); term != "" {
		jql := fmt.Sprintf(`project = %s AND summary ~ "%s" AND created >= -%dd`,
			projectKey, term, summaryWindowDays)
		merged.collect(m.search(ctx, jql, 5))
	}

	if jql := shaQuery(projectKey, commitSHAs); jql != "" {
		merged.collect(m.search(ctx, jql, 10))
	}

	matches := merged.matches
	result := types.DuplicateCheckResult{
		IsDuplicate: len(matches) > 0,
		Confidence:  confidence(matches, commitSHAs),
		Matches:     matches,
	}
	for _, match := range matches {
		result.ExistingKeys = append(result.ExistingKeys, match.Key)
	}
	return result, nil
}

// FindExisting searches by repo name, branch name, PR URL fragments, and
// commit SHAs, merging all matches by issue key.
func (m *Matcher) FindExisting(ctx context.Context, projectKey, repoName, branch string, prURLs, commitSHAs []string) ([]types.ExistingJiraMatch, error) {
	if err := checkProjectKey(projectKey); err != nil {
		return nil, err
	}

	merged := newMatchSet()

	// Candidate summaries embed the repo name as a bracket prefix, but
	// Jira text search mishandles brackets, so search the bare name.
	if repo := SanitizeJQL(repoName); repo != "" {
		jql := fmt.Sprintf(`project = %s AND summary ~ "%s"`, projectKey, repo)
		merged.collect(m.search(ctx, jql, 10))
	}

	if branch != "" && !defaultBranchNames[branch] {
		if term := SanitizeJQL(branch); term != "" {
			jql := fmt.Sprintf(`project = %s AND (summary ~ "%s" OR description ~ "%s")`,
				projectKey, term, term)
			merged.collect(m.search(ctx, jql, 10))
		}
	}

	for _, prURL := range prURLs {
		slug, ref, ok := splitPRURL(prURL)
		if !ok {
			continue
		}
		jql := fmt.Sprintf(`project = %s AND description ~ "%s" AND description ~ "pull/%s"`,
			projectKey, SanitizeJQL(slug), SanitizeJQL(ref))
		merged.collect(m.search(ctx, jql, 5))
	}

	if jql := shaQuery(projectKey, commitSHAs); jql != "" {
		merged.collect(m.search(ctx, jql, 10))
	}

	return merged.matches, nil
}

func (m *Matcher) search(ctx context.Context, jql string, maxResults int) []types.ExistingJiraMatch {
	matches, err := m.searcher.SearchIssues(ctx, jql, maxResults)
	if err != nil {
		return nil
	}
	return matches
}

// summaryTerm strips the bracket prefix from a candidate summary and
// bounds the search term length.
func summaryTerm(summary string) string {
	core := bracketPrefix.ReplaceAllString(summary, "")
	if len(core) > summaryQueryLen {
		core = core[:summaryQueryLen]
	}
	return SanitizeJQL(core)
}

// shaQuery builds one description search over the usable SHA prefixes, or
// returns empty when no SHA qualifies.
func shaQuery(projectKey string, commitSHAs []string) string {
	var clauses []string
	for _, sha := range commitSHAs {
		if len(clauses) == maxSHAQueries {
			break
		}
		if len(sha) < minSHALen {
			continue
		}
		prefix := sha
		if len(prefix) > shaPrefixLen {
			prefix = prefix[:shaPrefixLen]
		}
		clauses = append(clauses, fmt.Sprintf(`description ~ "%s"`, SanitizeJQL(prefix)))
	}
	if len(clauses) == 0 {
		return ""
	}
	return fmt.Sprintf(`project = %s AND (%s)`, projectKey, strings.Join(clauses, " OR "))
}

// splitPRURL extracts the repo slug and PR number from a pull-request URL.
func splitPRURL(prURL string) (slug, ref string, ok bool) {
	base, ref, found := strings.Cut(prURL, "/pull/")
	if !found || ref == "" {
		return "", "", false
	}
	slug = base[strings.LastIndex(base, "/")+1:]
	if slug == "" {
		return "", "", false
	}
	return slug, ref, true
}

// confidence grades the aggregate result: two or more distinct matched
// issues, or a commit SHA echoed in a match's summary, reads as high.
func confidence(matches []types.ExistingJiraMatch, commitSHAs []string) types.Confidence {
	if len(matches) == 0 {
		return types.ConfidenceNone
	}
	if len(matches) >= 2 {
		return types.ConfidenceHigh
	}
	for _, match := range matches {
		for _, sha := range commitSHAs {
			if len(sha) < minSHALen {
				continue
			}
			prefix := sha
			if len(prefix) > shaPrefixLen {
				prefix = prefix[:shaPrefixLen]
			}
			if strings.Contains(match.Summary, prefix) {
				return types.ConfidenceHigh
			}
		}
	}
	return types.ConfidenceMedium
}

// matchSet merges matches across strategies, keyed by issue key with
// first-seen precedence.
type matchSet struct {
	seen    map[string]bool
	matches []types.ExistingJiraMatch
}

func newMatchSet() *matchSet {
	return &matchSet{seen: make(map[string]bool)}
}

func (s *matchSet) collect(matches []types.ExistingJiraMatch) {
	for _, match := range matches {
		if s.seen[match.Key] {
			continue
		}
		s.seen[match.Key] = true
		s.matches = append(s.matches, match)
	}
}
