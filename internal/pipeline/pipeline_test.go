package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/analyzer"
	"github.com/devpulse/devpulse/internal/jira"
	"github.com/devpulse/devpulse/internal/storage/sqlite"
	"github.com/devpulse/devpulse/internal/suggester"
	"github.com/devpulse/devpulse/internal/types"
)

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Dev", "GIT_AUTHOR_EMAIL=dev@example.com",
		"GIT_COMMITTER_NAME=Dev", "GIT_COMMITTER_EMAIL=dev@example.com")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
}

func makeRepo(t *testing.T, root, name string, commits int) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	run(t, dir, "init", "-b", "main")
	for i := 0; i < commits; i++ {
		file := filepath.Join(dir, fmt.Sprintf("file%d.txt", i))
		require.NoError(t, os.WriteFile(file, []byte("content\n"), 0644))
		run(t, dir, "add", ".")
		run(t, dir, "commit", "-m", fmt.Sprintf("feat: add feature %d", i))
	}
	return dir
}

func newPipeline() *Pipeline {
	a := analyzer.New(analyzer.NewCache(0), "")
	return New(a, suggester.New("", nil))
}

func TestAnalyzeReposPreservesInputOrder(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		makeRepo(t, root, "alpha", 1),
		makeRepo(t, root, "beta", 2),
		makeRepo(t, root, "gamma", 3),
	}

	got := newPipeline().AnalyzeRepos(context.Background(), paths, analyzer.SummaryOptions{})
	require.Len(t, got, 3)
	assert.Equal(t, "alpha", got[0].RepoName)
	assert.Equal(t, "beta", got[1].RepoName)
	assert.Equal(t, "gamma", got[2].RepoName)
	assert.Len(t, got[2].RecentCommits, 3)
}

func TestAnalyzeReposFailureBecomesPlaceholder(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		makeRepo(t, root, "alpha", 1),
		filepath.Join(root, "no-such-repo"),
		makeRepo(t, root, "gamma", 1),
	}

	got := newPipeline().AnalyzeRepos(context.Background(), paths, analyzer.SummaryOptions{})
	require.Len(t, got, 3)

	assert.False(t, Failed(&got[0]))
	require.True(t, Failed(&got[1]))
	assert.Equal(t, "no-such-repo", got[1].RepoName)
	assert.Empty(t, got[1].RecentCommits)
	assert.False(t, Failed(&got[2]))
}

func TestAnalyzeReposNarrowPool(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		paths = append(paths, makeRepo(t, root, fmt.Sprintf("repo%d", i), 1))
	}

	p := newPipeline()
	p.MaxParallel = 2
	got := p.AnalyzeRepos(context.Background(), paths, analyzer.SummaryOptions{})
	require.Len(t, got, 6)
	for i, summary := range got {
		assert.Equal(t, fmt.Sprintf("repo%d", i), summary.RepoName)
	}
}

func TestAnalyzeReposCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := t.TempDir()
	paths := []string{makeRepo(t, root, "alpha", 1)}

	got := newPipeline().AnalyzeRepos(ctx, paths, analyzer.SummaryOptions{})
	require.Len(t, got, 1)
	assert.True(t, Failed(&got[0]))
}

func TestSuggestTicketsEndToEnd(t *testing.T) {
	root := t.TempDir()
	paths := []string{makeRepo(t, root, "billing", 3)}

	p := newPipeline()
	got, err := p.SuggestTickets(context.Background(), paths, "PROJ", analyzer.SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "billing", got[0].SourceRepo)
	assert.Equal(t, types.TypeStory, got[0].IssueType)
	assert.Len(t, got[0].SourceCommits, 3)
	assert.True(t, got[0].Selected)
}

type stubSearcher struct {
	matches []types.ExistingJiraMatch
}

func (s *stubSearcher) SearchIssues(ctx context.Context, jql string, maxResults int) ([]types.ExistingJiraMatch, error) {
	if strings.Contains(jql, "summary ~") {
		return s.matches, nil
	}
	return nil, nil
}

func TestSuggestTicketsMarksTrackerDuplicates(t *testing.T) {
	root := t.TempDir()
	paths := []string{makeRepo(t, root, "billing", 3)}

	p := newPipeline()
	p.Matcher = jira.NewMatcher(&stubSearcher{matches: []types.ExistingJiraMatch{
		{Key: "PROJ-1", Summary: "Feature development in billing"},
		{Key: "PROJ-2", Summary: "More billing work"},
	}})

	got, err := p.SuggestTickets(context.Background(), paths, "PROJ", analyzer.SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.True(t, got[0].AlreadyTracked)
	assert.False(t, got[0].Selected)
	assert.Len(t, got[0].ExistingJira, 2)
}

func TestSuggestTicketsAnnotatesFromStore(t *testing.T) {
	root := t.TempDir()
	paths := []string{makeRepo(t, root, "billing", 3)}
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "devpulse.db"))
	require.NoError(t, err)
	defer store.Close()

	p := newPipeline()
	p.Store = store

	first, err := p.SuggestTickets(ctx, paths, "PROJ", analyzer.SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.True(t, first[0].Selected)

	require.NoError(t, store.MarkCreated(ctx, first[0].ID, "PROJ-99", "billing", "main"))

	second, err := p.SuggestTickets(ctx, paths, "PROJ", analyzer.SummaryOptions{BypassCache: true})
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].ID, second[0].ID, "suggestion identity must be stable across runs")
	assert.True(t, second[0].AlreadyTracked)
	assert.False(t, second[0].Selected)
	require.Len(t, second[0].ExistingJira, 1)
	assert.Equal(t, "PROJ-99", second[0].ExistingJira[0].Key)
}
