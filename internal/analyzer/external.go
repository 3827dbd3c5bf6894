package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/devpulse/devpulse/internal/gitutil"
	"github.com/devpulse/devpulse/internal/types"
)

// subprocessTimeout bounds every network-backed subprocess call. A call
// that exceeds it is treated as a soft failure, not a hard error.
const subprocessTimeout = 15 * time.Second

// Diff returns patch text: the combined staged+unstaged diff against HEAD
// when sha is empty, otherwise the patch introduced by that commit.
func (a *Analyzer) Diff(ctx context.Context, repoPath, sha string) (string, error) {
	if sha == "" {
		out, err := gitOutput(ctx, repoPath, "diff", "HEAD")
		if err != nil {
			return "", fmt.Errorf("diff of %s failed: %w", repoPath, err)
		}
		return out, nil
	}

	// Root commits have no parent to diff against; git show covers both.
	out, err := gitOutput(ctx, repoPath, "show", "--format=", "--patch", sha)
	if err != nil {
		return "", fmt.Errorf("diff of %s at %s failed: %w", repoPath, sha, err)
	}
	return out, nil
}

// ghPullRequest mirrors the JSON shape emitted by `gh pr list`.
type ghPullRequest struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	HeadRefName string `json:"headRefName"`
	State       string `json:"state"`
	CreatedAt   string `json:"createdAt"`
	MergedAt    string `json:"mergedAt"`
	ClosedAt    string `json:"closedAt"`
}

// PullRequests lists pull requests for the repository via the gh CLI.
// Best-effort: a missing binary, missing credentials, or a non-GitHub
// remote all yield an empty list.
func (a *Analyzer) PullRequests(ctx context.Context, repoPath string) []types.PullRequestInfo {
	prs, err := a.listPullRequests(ctx, repoPath)
	if err != nil {
		log.Printf("analyzer: pr listing for %s unavailable: %v", repoPath, err)
		return []types.PullRequestInfo{}
	}

	infos := make([]types.PullRequestInfo, 0, len(prs))
	for _, pr := range prs {
		infos = append(infos, types.PullRequestInfo{
			Number:    pr.Number,
			Title:     pr.Title,
			URL:       pr.URL,
			Branch:    pr.HeadRefName,
			State:     pr.State,
			CreatedAt: parseGHDate(pr.CreatedAt),
			MergedAt:  parseGHDate(pr.MergedAt),
			ClosedAt:  parseGHDate(pr.ClosedAt),
		})
	}
	return infos
}

func (a *Analyzer) listPullRequests(ctx context.Context, repoPath string) ([]ghPullRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	args := []string{
		"pr", "list",
		"--state", "all",
		"--limit", "50",
		"--json", "number,title,url,headRefName,state,createdAt,mergedAt,closedAt",
	}
	if a.prAuthor != "" {
		args = append(args, "--author", a.prAuthor)
	}

	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gh pr list failed: %w", err)
	}

	var prs []ghPullRequest
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("parsing gh pr list output: %w", err)
	}
	return prs, nil
}

// RemoteBranches fetches remote refs (best-effort) and returns remote
// branches that carry a pull request, de-duplicated by branch with the
// first (most recent) PR kept. Default branches present on the remote are
// always included.
func (a *Analyzer) RemoteBranches(ctx context.Context, repoPath string) []types.RemoteBranch {
	// Refresh remote refs; failure here only means slightly stale data.
	if _, err := gitOutput(ctx, repoPath, "fetch", "--quiet"); err != nil {
		log.Printf("analyzer: fetch for %s failed: %v", repoPath, err)
	}

	prs, err := a.listPullRequests(ctx, repoPath)
	if err != nil {
		log.Printf("analyzer: pr listing for %s unavailable: %v", repoPath, err)
		prs = nil
	}

	seen := make(map[string]bool)
	branches := []types.RemoteBranch{}
	for _, pr := range prs {
		if seen[pr.HeadRefName] {
			continue
		}
		seen[pr.HeadRefName] = true
		branches = append(branches, types.RemoteBranch{
			Branch:   pr.HeadRefName,
			PRNumber: pr.Number,
			PRTitle:  pr.Title,
			PRState:  pr.State,
			PRURL:    pr.URL,
		})
	}

	for _, name := range remoteDefaultBranches(ctx, repoPath) {
		if seen[name] {
			continue
		}
		seen[name] = true
		branches = append(branches, types.RemoteBranch{
			Branch:  name,
			PRTitle: fmt.Sprintf("Default branch (%s)", name),
			PRState: "DEFAULT",
		})
	}
	return branches
}

// remoteDefaultBranches returns which of main/master exist on any remote.
func remoteDefaultBranches(ctx context.Context, repoPath string) []string {
	repo, err := gitutil.Open(repoPath)
	if err != nil {
		return nil
	}
	refs, err := repo.References()
	if err != nil {
		return nil
	}
	defer refs.Close()

	present := make(map[string]bool)
	_ = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsRemote() {
			short := ref.Name().Short() // e.g. origin/main
			if idx := strings.IndexByte(short, '/'); idx >= 0 {
				present[short[idx+1:]] = true
			}
		}
		return nil
	})

	var names []string
	for _, candidate := range []string{"main", "master"} {
		if present[candidate] {
			names = append(names, candidate)
		}
	}
	return names
}

// Pull checks out branch and pulls it from the remote, auto-stashing local
// changes around the operation. The outcome is reported in-band; this never
// returns an error because pull touches the network and remote credentials.
func (a *Analyzer) Pull(ctx context.Context, repoPath, branch string) types.PullResult {
	result := types.PullResult{Branch: branch}

	stashed := false
	if dirty, _ := hasTrackedChanges(repoPath); dirty {
		if _, err := gitOutput(ctx, repoPath, "stash", "save", "auto-stash before pull"); err != nil {
			result.Error = fmt.Sprintf("stash failed: %v", err)
			return result
		}
		stashed = true
	}

	if _, err := gitOutput(ctx, repoPath, "checkout", branch); err != nil {
		result.Error = fmt.Sprintf("checkout %s failed: %v", branch, err)
		return result
	}

	out, err := gitOutput(ctx, repoPath, "pull")
	if err != nil {
		result.Error = fmt.Sprintf("pull failed: %v", err)
		return result
	}
	result.Output = strings.TrimSpace(out)

	if stashed {
		// Conflicting stash pops are left for the user to resolve.
		if _, err := gitOutput(ctx, repoPath, "stash", "pop"); err != nil {
			log.Printf("analyzer: stash pop in %s failed: %v", repoPath, err)
		}
	}

	if current, err := gitOutput(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		result.CurrentBranch = strings.TrimSpace(current)
	}
	result.Success = true
	return result
}

// hasTrackedChanges reports whether tracked files have modifications
// (untracked files don't need stashing).
func hasTrackedChanges(repoPath string) (bool, error) {
	repo, err := gitutil.Open(repoPath)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	for _, fs := range status {
		if fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// gitOutput runs git in repoPath with a bounded timeout and returns stdout.
func gitOutput(ctx context.Context, repoPath string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoPath}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// runGit is gitOutput with failures swallowed, for best-effort callers.
func runGit(ctx context.Context, repoPath string, args ...string) string {
	out, err := gitOutput(ctx, repoPath, args...)
	if err != nil {
		return ""
	}
	return out
}

func parseGHDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &parsed
}
