package analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/devpulse/devpulse/internal/types"
)

// uncommitted builds the structured working tree state. File lists come
// from go-git; patch text comes from the git binary and is best-effort, so
// a file whose diff cannot be produced carries a nil Diff.
func (a *Analyzer) uncommitted(ctx context.Context, repo *git.Repository, repoPath string) types.UncommittedChanges {
	changes := types.UncommittedChanges{
		Staged:    []types.FileChange{},
		Unstaged:  []types.FileChange{},
		Untracked: []string{},
	}

	wt, err := repo.Worktree()
	if err != nil {
		return changes
	}
	status, err := wt.Status()
	if err != nil {
		return changes
	}

	stagedPatches := splitDiffByFile(runGit(ctx, repoPath, "diff", "--cached"))
	unstagedPatches := splitDiffByFile(runGit(ctx, repoPath, "diff"))

	// Map iteration order is random; keep output deterministic.
	paths := make([]string, 0, len(status))
	for path := range status {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		fs := status[path]
		if fs.Worktree == git.Untracked {
			changes.Untracked = append(changes.Untracked, path)
			continue
		}
		if fs.Staging != git.Unmodified {
			changes.Staged = append(changes.Staged, types.FileChange{
				Path:       path,
				ChangeType: changeType(fs.Staging),
				Diff:       patchFor(stagedPatches, path),
			})
		}
		if fs.Worktree != git.Unmodified {
			changes.Unstaged = append(changes.Unstaged, types.FileChange{
				Path:       path,
				ChangeType: changeType(fs.Worktree),
				Diff:       patchFor(unstagedPatches, path),
			})
		}
	}
	return changes
}

func changeType(code git.StatusCode) types.FileChangeType {
	switch code {
	case git.Added:
		return types.ChangeAdded
	case git.Deleted:
		return types.ChangeDeleted
	case git.Renamed:
		return types.ChangeRenamed
	case git.Untracked:
		return types.ChangeUntracked
	default:
		return types.ChangeModified
	}
}

func patchFor(patches map[string]string, path string) *string {
	if patches == nil {
		return nil
	}
	patch, ok := patches[path]
	if !ok {
		return nil
	}
	return &patch
}

// splitDiffByFile splits unified diff output into per-file patches keyed by
// the post-image path. Empty or undecodable input yields nil.
func splitDiffByFile(diff string) map[string]string {
	if strings.TrimSpace(diff) == "" {
		return nil
	}

	patches := make(map[string]string)
	var current string
	var buf strings.Builder

	flush := func() {
		if current != "" && buf.Len() > 0 {
			patches[current] = buf.String()
		}
		buf.Reset()
	}

	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			current = diffHeaderPath(line)
		}
		buf.WriteString(line)
	}
	flush()

	if len(patches) == 0 {
		return nil
	}
	return patches
}

// diffHeaderPath extracts the b/ path from a "diff --git a/x b/x" header.
func diffHeaderPath(header string) string {
	header = strings.TrimSuffix(header, "\n")
	idx := strings.LastIndex(header, " b/")
	if idx < 0 {
		return ""
	}
	return header[idx+len(" b/"):]
}
