package analyzer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/types"
)

func run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s %v: %s", name, args, out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init", "-b", "main")
	run(t, dir, "git", "config", "user.name", "Test User")
	run(t, dir, "git", "config", "user.email", "test@example.com")
	return dir
}

func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	run(t, dir, "git", "add", name)
	run(t, dir, "git", "commit", "-m", message)
}

func commitFileAt(t *testing.T, dir, name, content, message, date string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	run(t, dir, "git", "add", name)
	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git commit: %s", out)
}

func TestCommits_WindowAndRefs(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.txt", "a", "feat: add feature ABC-123")
	commitFile(t, dir, "b.txt", "b", "fix: patch issue\n\nRefs ABC-123 and XY-7")
	commitFile(t, dir, "c.txt", "c", "chore: cleanup")

	a := New(nil, "")
	commits, err := a.Commits(context.Background(), dir, 30, 30)
	require.NoError(t, err)

	require.Len(t, commits, 3)
	// Newest first.
	assert.Equal(t, "chore: cleanup", commits[0].Message)
	assert.Equal(t, []string{"ABC-123", "XY-7"}, commits[1].JiraRefs)
	assert.Equal(t, []string{"ABC-123"}, commits[2].JiraRefs)
	for _, c := range commits {
		assert.Len(t, c.SHA, 40)
		assert.Equal(t, c.SHA[:7], c.ShortSHA)
		assert.Equal(t, "Test User", c.Author)
		assert.Equal(t, 1, c.FilesChanged)
		assert.Equal(t, 1, c.Insertions)
	}
}

func TestCommits_MaxCommitsBound(t *testing.T) {
	dir := initRepo(t)
	for i := 0; i < 5; i++ {
		commitFile(t, dir, "a.txt", string(rune('a'+i)), "commit")
	}

	a := New(nil, "")
	commits, err := a.Commits(context.Background(), dir, 3, 30)
	require.NoError(t, err)
	assert.Len(t, commits, 3)
}

func TestCommits_StopsAtFirstOldCommit(t *testing.T) {
	dir := initRepo(t)
	// Old commits beyond the window, then recent ones on top.
	commitFileAt(t, dir, "a.txt", "1", "ancient one", "2020-01-01T10:00:00")
	commitFileAt(t, dir, "a.txt", "2", "ancient two", "2020-01-02T10:00:00")
	commitFile(t, dir, "a.txt", "3", "recent work")

	a := New(nil, "")
	commits, err := a.Commits(context.Background(), dir, 30, 30)
	require.NoError(t, err)

	// The walk must stop at the first old commit, not filter past it.
	require.Len(t, commits, 1)
	assert.Equal(t, "recent work", commits[0].Message)
}

func TestUncommitted_StagedUnstagedUntracked(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "tracked.txt", "one\n", "initial commit")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("two\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staged.txt"), []byte("s\n"), 0644))
	run(t, dir, "git", "add", "staged.txt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.txt"), []byte("l\n"), 0644))

	a := New(nil, "")
	changes, err := a.Uncommitted(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, changes.Staged, 1)
	assert.Equal(t, "staged.txt", changes.Staged[0].Path)
	assert.Equal(t, types.ChangeAdded, changes.Staged[0].ChangeType)
	require.NotNil(t, changes.Staged[0].Diff)
	assert.Contains(t, *changes.Staged[0].Diff, "+s")

	require.Len(t, changes.Unstaged, 1)
	assert.Equal(t, "tracked.txt", changes.Unstaged[0].Path)
	assert.Equal(t, types.ChangeModified, changes.Unstaged[0].ChangeType)
	require.NotNil(t, changes.Unstaged[0].Diff)
	assert.Contains(t, *changes.Unstaged[0].Diff, "-one")
	assert.Contains(t, *changes.Unstaged[0].Diff, "+two")

	assert.Equal(t, []string{"loose.txt"}, changes.Untracked)
	assert.False(t, changes.IsEmpty())
}

func TestBranches_TrackingAndRefs(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.txt", "a", "initial commit")
	run(t, dir, "git", "checkout", "-b", "feature/ABC-42-login")
	commitFile(t, dir, "b.txt", "b", "work on login")

	a := New(nil, "")
	branches, err := a.Branches(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, branches, 2)
	byName := map[string]types.BranchInfo{}
	for _, b := range branches {
		byName[b.Name] = b
	}

	feature := byName["feature/ABC-42-login"]
	assert.True(t, feature.IsActive)
	assert.Equal(t, []string{"ABC-42"}, feature.JiraRefs)
	require.NotNil(t, feature.LastCommitDate)

	main := byName["main"]
	assert.False(t, main.IsActive)
	assert.Empty(t, main.Tracking)
}

func TestWorkSummary_EndToEnd(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.txt", "a", "feat: initial feature")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wip.txt"), []byte("wip\n"), 0644))

	a := New(NewCache(time.Minute), "")
	summary, err := a.WorkSummary(context.Background(), dir, SummaryOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(dir), summary.RepoName)
	assert.Equal(t, dir, summary.RepoPath)
	assert.Equal(t, "main", summary.CurrentBranch)
	assert.Len(t, summary.RecentCommits, 1)
	assert.Equal(t, []string{"wip.txt"}, summary.Uncommitted.Untracked)
	assert.NotNil(t, summary.PullRequests)
	assert.NotNil(t, summary.UnpushedCommits)
}

func TestWorkSummary_ServedFromCache(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.txt", "a", "initial commit")

	a := New(NewCache(time.Minute), "")
	first, err := a.WorkSummary(context.Background(), dir, SummaryOptions{})
	require.NoError(t, err)

	// A new commit is invisible until the cache is bypassed or cleared.
	commitFile(t, dir, "b.txt", "b", "second commit")

	cached, err := a.WorkSummary(context.Background(), dir, SummaryOptions{})
	require.NoError(t, err)
	assert.Same(t, first, cached)

	fresh, err := a.WorkSummary(context.Background(), dir, SummaryOptions{BypassCache: true})
	require.NoError(t, err)
	assert.Len(t, fresh.RecentCommits, 2)
}

func TestWorkSummary_NotARepo(t *testing.T) {
	a := New(nil, "")
	_, err := a.WorkSummary(context.Background(), t.TempDir(), SummaryOptions{})
	assert.Error(t, err)
}

func TestDiff_UncommittedAndCommit(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.txt", "one\n", "initial commit")
	commitFile(t, dir, "a.txt", "two\n", "update a")

	a := New(nil, "")

	// Commit diff via SHA.
	commits, err := a.Commits(context.Background(), dir, 10, 30)
	require.NoError(t, err)
	patch, err := a.Diff(context.Background(), dir, commits[0].SHA)
	require.NoError(t, err)
	assert.Contains(t, patch, "+two")

	// Working-tree diff.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("three\n"), 0644))
	patch, err = a.Diff(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Contains(t, patch, "+three")
}

func TestSplitDiffByFile(t *testing.T) {
	diff := "diff --git a/x.txt b/x.txt\nindex 1..2 100644\n--- a/x.txt\n+++ b/x.txt\n@@ -1 +1 @@\n-a\n+b\n" +
		"diff --git a/y.txt b/y.txt\nnew file mode 100644\n--- /dev/null\n+++ b/y.txt\n@@ -0,0 +1 @@\n+c\n"
	patches := splitDiffByFile(diff)

	require.Len(t, patches, 2)
	assert.Contains(t, patches["x.txt"], "+b")
	assert.Contains(t, patches["y.txt"], "+c")

	assert.Nil(t, splitDiffByFile(""))
}

func TestPullRequests_BestEffortEmpty(t *testing.T) {
	// No gh credentials / no GitHub remote: must yield empty, not error.
	dir := initRepo(t)
	commitFile(t, dir, "a.txt", "a", "initial commit")

	a := New(nil, "someone")
	prs := a.PullRequests(context.Background(), dir)
	assert.NotNil(t, prs)
	assert.Empty(t, prs)
}
