// Package scanner discovers git repositories under the configured base
// directories and attaches light status metadata to each.
//
// Discovery is deliberately forgiving: a directory that cannot be read or
// opened as a repository is skipped, never surfaced as an error. Partial
// failures must not abort a scan.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/types"
)

// Scanner walks configured base directories and identifies repository roots.
type Scanner struct {
	dirs        []config.ScanDirectory
	hiddenRepos map[string]bool
}

// New creates a Scanner from the loaded configuration.
func New(cfg *config.Config) *Scanner {
	hidden := make(map[string]bool, len(cfg.HiddenRepos))
	for _, name := range cfg.HiddenRepos {
		hidden[name] = true
	}
	return &Scanner{
		dirs:        cfg.EnabledDirectories(),
		hiddenRepos: hidden,
	}
}

// NewForDirs creates a Scanner over explicit directories, bypassing the
// config file. Used by the CLI when paths are given as arguments. The
// same defaults EnabledDirectories applies to configured entries apply
// here, so an unset MaxDepth still scans one level.
func NewForDirs(dirs []config.ScanDirectory) *Scanner {
	normalized := make([]config.ScanDirectory, 0, len(dirs))
	for _, d := range dirs {
		d.Path = config.ExpandPath(d.Path)
		if d.MaxDepth <= 0 {
			d.MaxDepth = 1
		}
		if d.ExcludePatterns == nil {
			d.ExcludePatterns = config.DefaultExcludePatterns
		}
		normalized = append(normalized, d)
	}
	return &Scanner{dirs: normalized, hiddenRepos: map[string]bool{}}
}

// Scan discovers repositories under all enabled base directories.
//
// "Specific" roots (a configured path that is itself a repository, or sits
// inside one) are scanned first and take priority over "broad" parent
// directories discovering the same path. Repositories found through a
// specific root bypass the hidden-repo filter; includeHidden disables that
// filter entirely.
func (s *Scanner) Scan(ctx context.Context, includeHidden bool) []types.RepoInfo {
	var repos []types.RepoInfo
	seen := make(map[string]bool)
	explicit := make(map[string]bool)

	var broad, specific []config.ScanDirectory
	for _, dir := range s.dirs {
		if isRepoRoot(dir.Path) || nearestRepoRoot(dir.Path) != "" {
			specific = append(specific, dir)
		} else {
			broad = append(broad, dir)
		}
	}

	for _, dir := range specific {
		for _, repo := range s.scanDirectory(ctx, dir) {
			if seen[repo.Path] {
				continue
			}
			seen[repo.Path] = true
			explicit[repo.Path] = true
			repos = append(repos, repo)
		}
	}
	for _, dir := range broad {
		for _, repo := range s.scanDirectory(ctx, dir) {
			if seen[repo.Path] {
				continue
			}
			seen[repo.Path] = true
			repos = append(repos, repo)
		}
	}

	if !includeHidden && len(s.hiddenRepos) > 0 {
		filtered := repos[:0]
		for _, repo := range repos {
			if explicit[repo.Path] || !s.hiddenRepos[repo.Name] {
				filtered = append(filtered, repo)
			}
		}
		repos = filtered
	}

	return repos
}

// scanDirectory scans one base directory according to its configuration.
func (s *Scanner) scanDirectory(ctx context.Context, dir config.ScanDirectory) []types.RepoInfo {
	info, err := os.Stat(dir.Path)
	if err != nil || !info.IsDir() {
		return nil
	}

	// The configured path may itself be a repository root.
	if isRepoRoot(dir.Path) {
		if repo, err := InspectRepo(dir.Path, ""); err == nil {
			return []types.RepoInfo{*repo}
		}
		return nil
	}

	// Or a subdirectory of one; report the enclosing repository under the
	// configured directory's name.
	if root := nearestRepoRoot(dir.Path); root != "" {
		if repo, err := InspectRepo(root, filepath.Base(dir.Path)); err == nil {
			return []types.RepoInfo{*repo}
		}
		return nil
	}

	if dir.Recursive {
		return s.scanRecursive(ctx, dir.Path, dir, 0)
	}
	return s.scanFlat(ctx, dir.Path, dir)
}

// scanFlat looks one level deep for repository roots.
func (s *Scanner) scanFlat(ctx context.Context, base string, dir config.ScanDirectory) []types.RepoInfo {
	var repos []types.RepoInfo
	for _, child := range listSubdirs(base) {
		if ctx.Err() != nil {
			return repos
		}
		if isExcluded(child, dir) {
			continue
		}
		path := filepath.Join(base, child)
		if !isRepoRoot(path) {
			continue
		}
		if repo, err := InspectRepo(path, ""); err == nil {
			repos = append(repos, *repo)
		}
	}
	return repos
}

// scanRecursive descends up to dir.MaxDepth levels, never entering a
// directory once it is identified as a repository root.
func (s *Scanner) scanRecursive(ctx context.Context, path string, dir config.ScanDirectory, depth int) []types.RepoInfo {
	if depth >= dir.MaxDepth {
		return nil
	}

	var repos []types.RepoInfo
	for _, child := range listSubdirs(path) {
		if ctx.Err() != nil {
			return repos
		}
		if isExcluded(child, dir) {
			continue
		}
		childPath := filepath.Join(path, child)
		if isRepoRoot(childPath) {
			if repo, err := InspectRepo(childPath, ""); err == nil {
				repos = append(repos, *repo)
			}
			continue
		}
		repos = append(repos, s.scanRecursive(ctx, childPath, dir, depth+1)...)
	}
	return repos
}

// isExcluded applies the directory's exclusion rules to a child name.
func isExcluded(name string, dir config.ScanDirectory) bool {
	for _, folder := range dir.ExcludeFolders {
		if name == folder {
			return true
		}
	}
	for _, pattern := range dir.ExcludePatterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// listSubdirs returns the sorted non-hidden subdirectory names of base.
// Unreadable directories yield nothing.
func listSubdirs(base string) []string {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

// isRepoRoot reports whether path contains git metadata.
func isRepoRoot(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// nearestRepoRoot walks up from path and returns the first ancestor that is
// a repository root, or empty when there is none.
func nearestRepoRoot(path string) string {
	for parent := filepath.Dir(path); ; parent = filepath.Dir(parent) {
		if isRepoRoot(parent) {
			return parent
		}
		if parent == filepath.Dir(parent) {
			return ""
		}
	}
}
