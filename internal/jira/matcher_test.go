package jira

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/types"
)

// fakeSearcher records every JQL query and answers from a canned routing
// table keyed by substring.
type fakeSearcher struct {
	queries []string
	results map[string][]types.ExistingJiraMatch
	err     error
}

func (f *fakeSearcher) SearchIssues(ctx context.Context, jql string, maxResults int) ([]types.ExistingJiraMatch, error) {
	f.queries = append(f.queries, jql)
	if f.err != nil {
		return nil, f.err
	}
	for needle, matches := range f.results {
		if strings.Contains(jql, needle) {
			return matches, nil
		}
	}
	return nil, nil
}

func match(key, summary string) types.ExistingJiraMatch {
	return types.ExistingJiraMatch{Key: key, Summary: summary, Status: "Open", URL: "https://jira.example.com/browse/" + key}
}

func TestCheckDuplicateNoMatches(t *testing.T) {
	fake := &fakeSearcher{}
	result, err := NewMatcher(fake).CheckDuplicate(context.Background(), "Fix login bug", "TEAM", nil)
	require.NoError(t, err)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, types.ConfidenceNone, result.Confidence)
	assert.Empty(t, result.ExistingKeys)
}

func TestCheckDuplicateTwoMatchesIsHigh(t *testing.T) {
	fake := &fakeSearcher{results: map[string][]types.ExistingJiraMatch{
		`summary ~ "Fix login bug"`: {
			match("TEAM-1", "Fix login bug on mobile"),
			match("TEAM-2", "Login bug after redirect"),
		},
	}}

	result, err := NewMatcher(fake).CheckDuplicate(context.Background(), "Fix login bug", "TEAM", nil)
	require.NoError(t, err)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, types.ConfidenceHigh, result.Confidence)
	assert.Len(t, result.ExistingKeys, 2)
}

func TestCheckDuplicateSingleMatchIsMedium(t *testing.T) {
	fake := &fakeSearcher{results: map[string][]types.ExistingJiraMatch{
		`summary ~`: {match("TEAM-1", "Fix login bug")},
	}}

	result, err := NewMatcher(fake).CheckDuplicate(context.Background(), "Fix login bug", "TEAM", nil)
	require.NoError(t, err)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, types.ConfidenceMedium, result.Confidence)
	assert.Equal(t, []string{"TEAM-1"}, result.ExistingKeys)
}

func TestCheckDuplicateSHAInSummaryIsHigh(t *testing.T) {
	sha := "abc1234def5678900000000000000000000000ff"
	fake := &fakeSearcher{results: map[string][]types.ExistingJiraMatch{
		`description ~`: {match("TEAM-9", "Backport of abc1234")},
	}}

	result, err := NewMatcher(fake).CheckDuplicate(context.Background(), "Totally new work", "TEAM", []string{sha})
	require.NoError(t, err)

	assert.Equal(t, types.ConfidenceHigh, result.Confidence)
}

func TestCheckDuplicateStripsBracketPrefix(t *testing.T) {
	fake := &fakeSearcher{}
	_, err := NewMatcher(fake).CheckDuplicate(context.Background(), "[billing] Feature development (3 commits)", "TEAM", nil)
	require.NoError(t, err)

	require.Len(t, fake.queries, 1)
	assert.Contains(t, fake.queries[0], `summary ~ "Feature development (3 commits)"`)
	assert.NotContains(t, fake.queries[0], "[billing]")
	assert.Contains(t, fake.queries[0], "created >= -60d")
}

func TestCheckDuplicateSHAQueryShape(t *testing.T) {
	shas := []string{
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"abc12", // too short, skipped
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"cccccccccccccccccccccccccccccccccccccccc",
		"dddddddddddddddddddddddddddddddddddddddd",
		"eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		"ffffffffffffffffffffffffffffffffffffffff", // beyond the first 5 usable
	}
	fake := &fakeSearcher{}
	_, err := NewMatcher(fake).CheckDuplicate(context.Background(), "x", "TEAM", shas)
	require.NoError(t, err)

	require.Len(t, fake.queries, 2)
	shaJQL := fake.queries[1]
	assert.Contains(t, shaJQL, `description ~ "aaaaaaa"`)
	assert.Contains(t, shaJQL, `description ~ "eeeeeee"`)
	assert.NotContains(t, shaJQL, "abc12")
	assert.NotContains(t, shaJQL, "fffffff")
}

func TestCheckDuplicateRejectsInvalidProjectKey(t *testing.T) {
	fake := &fakeSearcher{}
	_, err := NewMatcher(fake).CheckDuplicate(context.Background(), "anything", `TEAM" OR 1=1`, nil)
	require.Error(t, err)
	assert.Empty(t, fake.queries, "no query may run with an invalid key")
}

func TestCheckDuplicateSearchFailureIsBestEffort(t *testing.T) {
	fake := &fakeSearcher{err: assert.AnError}
	result, err := NewMatcher(fake).CheckDuplicate(context.Background(), "Fix login bug", "TEAM", nil)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, types.ConfidenceNone, result.Confidence)
}

func TestFindExistingMergesStrategies(t *testing.T) {
	fake := &fakeSearcher{results: map[string][]types.ExistingJiraMatch{}}
	// Route each strategy's query by its distinctive fragment.
	fake.results[`summary ~ "billing"`] = []types.ExistingJiraMatch{match("TEAM-1", "[billing] old work")}
	fake.results[`summary ~ "payments-flow"`] = []types.ExistingJiraMatch{
		match("TEAM-1", "[billing] old work"), // already seen, must not duplicate
		match("TEAM-2", "payments-flow rollout"),
	}
	fake.results[`pull/42`] = []types.ExistingJiraMatch{match("TEAM-3", "Review PR 42")}

	matches, err := NewMatcher(fake).FindExisting(context.Background(), "TEAM",
		"billing", "payments-flow", []string{"https://github.com/acme/billing/pull/42"}, nil)
	require.NoError(t, err)

	require.Len(t, matches, 3)
	assert.Equal(t, "TEAM-1", matches[0].Key)
	assert.Equal(t, "TEAM-2", matches[1].Key)
	assert.Equal(t, "TEAM-3", matches[2].Key)
}

func TestFindExistingSkipsDefaultBranches(t *testing.T) {
	for _, branch := range []string{"main", "master", "develop", "development", ""} {
		fake := &fakeSearcher{}
		_, err := NewMatcher(fake).FindExisting(context.Background(), "TEAM", "billing", branch, nil, nil)
		require.NoError(t, err)

		require.Len(t, fake.queries, 1, "only the repo-name query should run for %q", branch)
		assert.Contains(t, fake.queries[0], `summary ~ "billing"`)
	}
}

func TestFindExistingPRURLFragments(t *testing.T) {
	fake := &fakeSearcher{}
	_, err := NewMatcher(fake).FindExisting(context.Background(), "TEAM", "billing", "",
		[]string{"https://github.com/acme/billing/pull/42", "https://example.com/not-a-pr"}, nil)
	require.NoError(t, err)

	require.Len(t, fake.queries, 2)
	assert.Contains(t, fake.queries[1], `description ~ "billing"`)
	assert.Contains(t, fake.queries[1], `description ~ "pull/42"`)
}

func TestSplitPRURL(t *testing.T) {
	slug, ref, ok := splitPRURL("https://github.com/acme/billing/pull/42")
	require.True(t, ok)
	assert.Equal(t, "billing", slug)
	assert.Equal(t, "42", ref)

	_, _, ok = splitPRURL("https://example.com/acme/billing")
	assert.False(t, ok)
}
