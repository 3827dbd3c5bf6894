package scanner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/types"
)

func run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s %v: %s", name, args, out)
}

// newGitCommand builds a git command rooted at dir without running it.
func newGitCommand(dir string, args ...string) *exec.Cmd {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd
}

// makeRepo initializes a git repository at dir with one commit.
func makeRepo(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	run(t, dir, "git", "init", "-b", "main")
	run(t, dir, "git", "config", "user.name", "Test User")
	run(t, dir, "git", "config", "user.email", "test@example.com")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0644))
	run(t, dir, "git", "add", "README.md")
	run(t, dir, "git", "commit", "-m", "initial commit")
}

func scanDir(path string, recursive bool, depth int) config.ScanDirectory {
	return config.ScanDirectory{
		Path:      path,
		Enabled:   true,
		Recursive: recursive,
		MaxDepth:  depth,
	}
}

func TestScan_FlatDiscovery(t *testing.T) {
	base := t.TempDir()
	makeRepo(t, filepath.Join(base, "alpha"))
	makeRepo(t, filepath.Join(base, "beta"))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "not-a-repo"), 0755))

	s := NewForDirs([]config.ScanDirectory{scanDir(base, false, 1)})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 2)
	assert.Equal(t, "alpha", repos[0].Name)
	assert.Equal(t, "beta", repos[1].Name)
	for _, r := range repos {
		assert.NoError(t, r.Validate())
		assert.Equal(t, types.StatusClean, r.Status)
		assert.Equal(t, "main", r.CurrentBranch)
		assert.Equal(t, 1, r.RecentCommitCount)
	}
}

func TestScan_RecursiveUnsetDepthScansOneLevel(t *testing.T) {
	base := t.TempDir()
	makeRepo(t, filepath.Join(base, "alpha"))
	makeRepo(t, filepath.Join(base, "group", "deep"))

	// Explicit directories from the CLI may omit MaxDepth; recursion must
	// still cover at least the first level instead of finding nothing.
	s := NewForDirs([]config.ScanDirectory{{Path: base, Enabled: true, Recursive: true}})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 1)
	assert.Equal(t, "alpha", repos[0].Name)
}

func TestScan_RecursiveRespectsDepthAndRepoBoundary(t *testing.T) {
	base := t.TempDir()
	makeRepo(t, filepath.Join(base, "group", "deep"))
	// A repo nested inside another repo must not be discovered separately.
	makeRepo(t, filepath.Join(base, "group", "deep", "nested"))
	// Beyond max depth.
	makeRepo(t, filepath.Join(base, "a", "b", "c", "toodeep"))

	s := NewForDirs([]config.ScanDirectory{scanDir(base, true, 2)})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 1)
	assert.Equal(t, "deep", repos[0].Name)
}

func TestScan_Exclusions(t *testing.T) {
	base := t.TempDir()
	makeRepo(t, filepath.Join(base, "keep"))
	makeRepo(t, filepath.Join(base, "node_modules"))
	makeRepo(t, filepath.Join(base, "skipme"))

	dir := scanDir(base, false, 1)
	dir.ExcludePatterns = []string{"node_*"}
	dir.ExcludeFolders = []string{"skipme"}

	s := NewForDirs([]config.ScanDirectory{dir})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 1)
	assert.Equal(t, "keep", repos[0].Name)
}

func TestScan_ConfiguredPathIsRepoRoot(t *testing.T) {
	base := t.TempDir()
	repoPath := filepath.Join(base, "solo")
	makeRepo(t, repoPath)

	s := NewForDirs([]config.ScanDirectory{scanDir(repoPath, false, 1)})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 1)
	assert.Equal(t, "solo", repos[0].Name)
	assert.Equal(t, repoPath, repos[0].Path)
}

func TestScan_ConfiguredPathInsideRepo(t *testing.T) {
	base := t.TempDir()
	repoPath := filepath.Join(base, "parent")
	makeRepo(t, repoPath)
	sub := filepath.Join(repoPath, "docs")
	require.NoError(t, os.MkdirAll(sub, 0755))

	s := NewForDirs([]config.ScanDirectory{scanDir(sub, false, 1)})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 1)
	// Reported under the configured subdirectory's name.
	assert.Equal(t, "docs", repos[0].Name)
	assert.Equal(t, repoPath, repos[0].Path)
}

func TestScan_DeduplicatesAcrossRoots(t *testing.T) {
	base := t.TempDir()
	repoPath := filepath.Join(base, "alpha")
	makeRepo(t, repoPath)

	s := NewForDirs([]config.ScanDirectory{
		scanDir(repoPath, false, 1), // specific
		scanDir(base, false, 1),     // broad, rediscovers alpha
	})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 1)
	assert.Equal(t, repoPath, repos[0].Path)
}

func TestScan_HiddenReposFiltered(t *testing.T) {
	base := t.TempDir()
	makeRepo(t, filepath.Join(base, "visible"))
	makeRepo(t, filepath.Join(base, "secret"))

	cfg := config.DefaultConfig()
	cfg.ScanDirectories = []config.ScanDirectory{scanDir(base, false, 1)}
	cfg.HiddenRepos = []string{"secret"}
	s := New(cfg)

	repos := s.Scan(context.Background(), false)
	require.Len(t, repos, 1)
	assert.Equal(t, "visible", repos[0].Name)

	// includeHidden disables the filter.
	repos = s.Scan(context.Background(), true)
	assert.Len(t, repos, 2)
}

func TestScan_ExplicitRootBypassesHiddenFilter(t *testing.T) {
	base := t.TempDir()
	secret := filepath.Join(base, "secret")
	makeRepo(t, secret)

	cfg := config.DefaultConfig()
	cfg.ScanDirectories = []config.ScanDirectory{scanDir(secret, false, 1)}
	cfg.HiddenRepos = []string{"secret"}
	s := New(cfg)

	repos := s.Scan(context.Background(), false)
	require.Len(t, repos, 1)
	assert.Equal(t, "secret", repos[0].Name)
}

func TestScan_UnreadableDirectorySkipped(t *testing.T) {
	base := t.TempDir()
	makeRepo(t, filepath.Join(base, "good"))
	// Fake repository: .git exists but is an empty file, so opening fails.
	bad := filepath.Join(base, "corrupt")
	require.NoError(t, os.MkdirAll(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, ".git"), []byte("junk"), 0644))

	s := NewForDirs([]config.ScanDirectory{scanDir(base, false, 1)})
	repos := s.Scan(context.Background(), false)

	require.Len(t, repos, 1)
	assert.Equal(t, "good", repos[0].Name)
}
