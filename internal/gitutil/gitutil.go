// Package gitutil provides shared helpers over go-git repositories used by
// both the repository scanner and the history analyzer.
package gitutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNotARepository is returned when a path cannot be opened as a git
// repository.
var ErrNotARepository = errors.New("not a git repository")

// defaultBranchCandidates is the preference order used to pick the ancestry
// baseline for stale-branch detection.
var defaultBranchCandidates = []string{"main", "master", "develop", "development"}

// Open opens the repository rooted at path.
func Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotARepository, path)
		}
		return nil, fmt.Errorf("opening repository %s: %w", path, err)
	}
	return repo, nil
}

// CurrentBranch returns the short name of the checked-out branch, or "HEAD"
// when the repository is in detached-HEAD state.
func CurrentBranch(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	if !head.Name().IsBranch() {
		return "HEAD", nil
	}
	return head.Name().Short(), nil
}

// HasCommits reports whether HEAD resolves to a commit. A freshly
// initialized repository has an unborn HEAD and no commits.
func HasCommits(repo *git.Repository) bool {
	_, err := repo.Head()
	return err == nil
}

// DefaultBranch returns the branch used as the ancestry baseline: the first
// of main/master/develop/development that exists locally, else the current
// branch, else empty.
func DefaultBranch(repo *git.Repository) string {
	for _, name := range defaultBranchCandidates {
		if _, err := repo.Reference(plumbing.NewBranchReferenceName(name), true); err == nil {
			return name
		}
	}
	branch, err := CurrentBranch(repo)
	if err != nil || branch == "HEAD" {
		return ""
	}
	return branch
}

// IsDefaultBranch reports whether name is one of the conventional default
// branch names.
func IsDefaultBranch(name string) bool {
	for _, candidate := range defaultBranchCandidates {
		if name == candidate {
			return true
		}
	}
	return false
}

// AncestorSet collects up to limit commit hashes reachable from start.
func AncestorSet(repo *git.Repository, start plumbing.Hash, limit int) (map[plumbing.Hash]bool, error) {
	commit, err := repo.CommitObject(start)
	if err != nil {
		return nil, fmt.Errorf("resolving commit %s: %w", start, err)
	}

	seen := make(map[plumbing.Hash]bool)
	iter := object.NewCommitPreorderIter(commit, nil, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		if limit > 0 && len(seen) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seen, nil
}

// CountRange counts commits reachable from include but not from exclude,
// the equivalent of `git rev-list --count exclude..include`. Both walks are
// bounded by limit to keep the cost predictable on deep histories.
func CountRange(repo *git.Repository, include, exclude plumbing.Hash, limit int) (int, error) {
	excluded, err := AncestorSet(repo, exclude, limit)
	if err != nil {
		return 0, err
	}

	commit, err := repo.CommitObject(include)
	if err != nil {
		return 0, fmt.Errorf("resolving commit %s: %w", include, err)
	}

	count := 0
	walked := 0
	iter := object.NewCommitPreorderIter(commit, nil, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		walked++
		if !excluded[c.Hash] {
			count++
		}
		if limit > 0 && walked >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// TrackingRef resolves the upstream reference tracked by the named local
// branch, returning its short name (e.g. "origin/main") and hash. The bool
// result is false when the branch has no configured upstream or the
// tracking ref does not exist locally.
func TrackingRef(repo *git.Repository, branch string) (string, plumbing.Hash, bool) {
	cfg, err := repo.Config()
	if err != nil {
		return "", plumbing.ZeroHash, false
	}
	bc, ok := cfg.Branches[branch]
	if !ok || bc.Remote == "" || bc.Merge == "" {
		return "", plumbing.ZeroHash, false
	}

	remoteRef := plumbing.NewRemoteReferenceName(bc.Remote, bc.Merge.Short())
	ref, err := repo.Reference(remoteRef, true)
	if err != nil {
		return "", plumbing.ZeroHash, false
	}
	return remoteRef.Short(), ref.Hash(), true
}

// CommitTime returns the committer timestamp of a commit in UTC.
func CommitTime(c *object.Commit) time.Time {
	return c.Committer.When.UTC()
}
