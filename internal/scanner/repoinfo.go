package scanner

import (
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/devpulse/devpulse/internal/gitutil"
	"github.com/devpulse/devpulse/internal/types"
)

const (
	// staleCutoffDays is the age beyond which an unmerged branch head is
	// reported as stale.
	staleCutoffDays = 30

	// defaultBranchWindow bounds the reachability check for staleness to
	// the default branch's recent history.
	defaultBranchWindow = 200

	// recentCommitWindow caps the commit count reported per repository.
	recentCommitWindow = 30

	// unpushedWalkLimit bounds the ahead-count walk against the upstream.
	unpushedWalkLimit = 500
)

// InspectRepo opens the repository at path and computes its status
// snapshot. displayName overrides the directory name when non-empty.
func InspectRepo(path string, displayName string) (*types.RepoInfo, error) {
	repo, err := gitutil.Open(path)
	if err != nil {
		return nil, err
	}

	name := displayName
	if name == "" {
		name = filepath.Base(path)
	}

	info := &types.RepoInfo{
		Name:   name,
		Path:   path,
		Status: types.StatusClean,
	}

	remotes, err := repo.Remotes()
	if err == nil {
		info.HasRemote = len(remotes) > 0
	}

	staged, unstaged, untracked := countWorktreeChanges(repo)
	info.UntrackedCount = untracked
	info.UncommittedCount = staged + unstaged + untracked

	if !gitutil.HasCommits(repo) {
		// Unborn HEAD: clean unless untracked files exist.
		info.CurrentBranch = unbornBranchName(repo)
		if untracked > 0 {
			info.Status = types.StatusDirty
		}
		return info, nil
	}

	branch, err := gitutil.CurrentBranch(repo)
	if err != nil {
		return nil, err
	}
	info.CurrentBranch = branch

	if info.UncommittedCount > 0 {
		info.Status = types.StatusDirty
	}

	info.RecentCommitCount = countRecentCommits(repo, recentCommitWindow)
	info.UnpushedCount = countUnpushed(repo, branch)
	info.StaleBranches = staleBranches(repo, time.Now().UTC())

	return info, nil
}

// countWorktreeChanges tallies staged, unstaged, and untracked files. A
// status failure (bare repository, unreadable index) counts as no changes.
func countWorktreeChanges(repo *git.Repository) (staged, unstaged, untracked int) {
	wt, err := repo.Worktree()
	if err != nil {
		return 0, 0, 0
	}
	status, err := wt.Status()
	if err != nil {
		return 0, 0, 0
	}

	for _, fs := range status {
		if fs.Worktree == git.Untracked {
			untracked++
			continue
		}
		if fs.Staging != git.Unmodified {
			staged++
		}
		if fs.Worktree != git.Unmodified {
			unstaged++
		}
	}
	return staged, unstaged, untracked
}

func countRecentCommits(repo *git.Repository, limit int) int {
	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		return 0
	}
	defer iter.Close()

	count := 0
	for count < limit {
		if _, err := iter.Next(); err != nil {
			break
		}
		count++
	}
	return count
}

// countUnpushed counts commits on the current branch ahead of its tracked
// upstream. No upstream means zero.
func countUnpushed(repo *git.Repository, branch string) int {
	if branch == "HEAD" {
		return 0
	}
	_, upstream, ok := gitutil.TrackingRef(repo, branch)
	if !ok {
		return 0
	}
	head, err := repo.Head()
	if err != nil {
		return 0
	}
	ahead, err := gitutil.CountRange(repo, head.Hash(), upstream, unpushedWalkLimit)
	if err != nil {
		return 0
	}
	return ahead
}

// staleBranches reports non-default branch heads older than the cutoff
// whose tips are not reachable from the default branch's recent history.
func staleBranches(repo *git.Repository, now time.Time) []types.StaleBranch {
	defaultBranch := gitutil.DefaultBranch(repo)
	if defaultBranch == "" {
		return nil
	}
	defaultRef, err := repo.Reference(plumbing.NewBranchReferenceName(defaultBranch), true)
	if err != nil {
		return nil
	}
	reachable, err := gitutil.AncestorSet(repo, defaultRef.Hash(), defaultBranchWindow)
	if err != nil {
		return nil
	}

	cutoff := now.Add(-staleCutoffDays * 24 * time.Hour)

	var stale []types.StaleBranch
	branches, err := repo.Branches()
	if err != nil {
		return nil
	}
	defer branches.Close()

	_ = branches.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if name == defaultBranch {
			return nil
		}
		tip, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return nil
		}
		tipTime := gitutil.CommitTime(tip)
		if !tipTime.Before(cutoff) {
			return nil
		}
		if reachable[ref.Hash()] {
			return nil
		}
		stale = append(stale, types.StaleBranch{
			Name:           name,
			LastCommitDate: &tipTime,
			DaysStale:      int(now.Sub(tipTime).Hours() / 24),
			IsMerged:       false,
		})
		return nil
	})
	return stale
}

// unbornBranchName returns the branch HEAD points at before the first
// commit exists.
func unbornBranchName(repo *git.Repository) string {
	ref, err := repo.Reference(plumbing.HEAD, false)
	if err != nil || ref.Type() != plumbing.SymbolicReference {
		return "main"
	}
	return ref.Target().Short()
}
