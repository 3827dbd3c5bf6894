// Package analyzer mines a repository's commit history, branch state, and
// uncommitted work into a WorkSummary.
//
// Repository-local reads go through go-git. Anything that touches the
// network or external credentials (pull-request listing, fetch, pull) shells
// out to the git/gh binaries and is strictly best-effort: failures produce
// empty results or in-band error fields, never a raised error, because those
// calls are outside this component's control.
package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/devpulse/devpulse/internal/gitutil"
	"github.com/devpulse/devpulse/internal/types"
)

const (
	// DefaultMaxCommits bounds the history walk when unset.
	DefaultMaxCommits = 30

	// DefaultSinceDays bounds the history window when unset.
	DefaultSinceDays = 30

	// aheadBehindLimit bounds branch comparison walks.
	aheadBehindLimit = 500

	// unpushedListLimit caps the unpushed commits attached to a summary.
	unpushedListLimit = 50
)

// SummaryOptions configures one mining request.
type SummaryOptions struct {
	MaxCommits int
	SinceDays  int

	// BypassCache forces recomputation even when a fresh snapshot exists.
	BypassCache bool
}

func (o *SummaryOptions) applyDefaults() {
	if o.MaxCommits <= 0 {
		o.MaxCommits = DefaultMaxCommits
	}
	if o.SinceDays <= 0 {
		o.SinceDays = DefaultSinceDays
	}
}

// Analyzer mines repositories into WorkSummary values.
type Analyzer struct {
	cache    *Cache
	prAuthor string
	now      func() time.Time
}

// New creates an Analyzer. The cache may be nil to disable caching;
// prAuthor filters pull-request listing to one author when non-empty.
func New(cache *Cache, prAuthor string) *Analyzer {
	return &Analyzer{cache: cache, prAuthor: prAuthor, now: time.Now}
}

// Cache exposes the injected cache for invalidation by callers.
func (a *Analyzer) Cache() *Cache {
	return a.cache
}

// WorkSummary mines repoPath into a summary, serving a cached snapshot when
// one is fresh. The returned summary is immutable; callers must not modify
// it.
func (a *Analyzer) WorkSummary(ctx context.Context, repoPath string, opts SummaryOptions) (*types.WorkSummary, error) {
	opts.applyDefaults()

	key := CacheKey(repoPath, opts.MaxCommits, opts.SinceDays)
	if a.cache != nil && !opts.BypassCache {
		if cached, ok := a.cache.Get(key); ok {
			return cached, nil
		}
	}

	repo, err := gitutil.Open(repoPath)
	if err != nil {
		return nil, err
	}

	branch := "main"
	if gitutil.HasCommits(repo) {
		branch, err = gitutil.CurrentBranch(repo)
		if err != nil {
			return nil, fmt.Errorf("resolving HEAD in %s: %w", repoPath, err)
		}
	}

	summary := &types.WorkSummary{
		RepoName:      repoName(repoPath),
		RepoPath:      repoPath,
		CurrentBranch: branch,
	}

	summary.Uncommitted = a.uncommitted(ctx, repo, repoPath)
	summary.RecentCommits = a.recentCommits(repo, opts.MaxCommits, opts.SinceDays)
	summary.Branches = a.branches(repo)
	summary.UnpushedCommits = a.unpushedCommits(repo, branch)
	summary.StaleBranches = a.staleBranchList(summary.Branches)
	summary.PullRequests = a.PullRequests(ctx, repoPath)

	if a.cache != nil {
		a.cache.Set(key, summary)
	}
	return summary, nil
}

// Uncommitted returns the working tree state of repoPath.
func (a *Analyzer) Uncommitted(ctx context.Context, repoPath string) (*types.UncommittedChanges, error) {
	repo, err := gitutil.Open(repoPath)
	if err != nil {
		return nil, err
	}
	changes := a.uncommitted(ctx, repo, repoPath)
	return &changes, nil
}

// Commits returns the windowed commit history of repoPath.
func (a *Analyzer) Commits(ctx context.Context, repoPath string, maxCommits, sinceDays int) ([]types.CommitInfo, error) {
	opts := SummaryOptions{MaxCommits: maxCommits, SinceDays: sinceDays}
	opts.applyDefaults()

	repo, err := gitutil.Open(repoPath)
	if err != nil {
		return nil, err
	}
	return a.recentCommits(repo, opts.MaxCommits, opts.SinceDays), nil
}

// Branches returns the local branch state of repoPath.
func (a *Analyzer) Branches(ctx context.Context, repoPath string) ([]types.BranchInfo, error) {
	repo, err := gitutil.Open(repoPath)
	if err != nil {
		return nil, err
	}
	return a.branches(repo), nil
}

// recentCommits walks history from HEAD, stopping at the first commit older
// than sinceDays or after maxCommits, whichever comes first. History is
// newest-first, so this is a prefix scan: one old commit terminates the
// walk rather than being filtered past.
func (a *Analyzer) recentCommits(repo *git.Repository, maxCommits, sinceDays int) []types.CommitInfo {
	commits := []types.CommitInfo{}

	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		return commits
	}
	defer iter.Close()

	since := a.now().UTC().AddDate(0, 0, -sinceDays)
	for len(commits) < maxCommits {
		c, err := iter.Next()
		if err != nil {
			break
		}
		when := gitutil.CommitTime(c)
		if when.Before(since) {
			break
		}
		commits = append(commits, commitInfo(c, when))
	}
	return commits
}

func commitInfo(c *object.Commit, when time.Time) types.CommitInfo {
	info := types.CommitInfo{
		SHA:         c.Hash.String(),
		ShortSHA:    c.Hash.String()[:7],
		Message:     trimMessage(c.Message),
		Author:      c.Author.Name,
		AuthorEmail: c.Author.Email,
		Date:        when,
		JiraRefs:    gitutil.ExtractJiraRefs(c.Message),
	}

	// Stats walk the commit's trees; failures leave zero counts.
	if stats, err := c.Stats(); err == nil {
		info.FilesChanged = len(stats)
		for _, fs := range stats {
			info.Insertions += fs.Addition
			info.Deletions += fs.Deletion
		}
	}
	return info
}

// branches lists local branch heads with upstream tracking state.
func (a *Analyzer) branches(repo *git.Repository) []types.BranchInfo {
	infos := []types.BranchInfo{}

	active := ""
	if name, err := gitutil.CurrentBranch(repo); err == nil && name != "HEAD" {
		active = name
	}

	iter, err := repo.Branches()
	if err != nil {
		return infos
	}
	defer iter.Close()

	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		info := types.BranchInfo{
			Name:     name,
			IsActive: name == active,
			JiraRefs: gitutil.ExtractJiraRefs(name),
		}

		if tracking, upstream, ok := gitutil.TrackingRef(repo, name); ok {
			info.Tracking = tracking
			if ahead, err := gitutil.CountRange(repo, ref.Hash(), upstream, aheadBehindLimit); err == nil {
				info.Ahead = ahead
			}
			if behind, err := gitutil.CountRange(repo, upstream, ref.Hash(), aheadBehindLimit); err == nil {
				info.Behind = behind
			}
		}

		if tip, err := repo.CommitObject(ref.Hash()); err == nil {
			when := gitutil.CommitTime(tip)
			info.LastCommitDate = &when
		}

		infos = append(infos, info)
		return nil
	})
	return infos
}

// unpushedCommits lists commits on branch ahead of its tracked upstream.
func (a *Analyzer) unpushedCommits(repo *git.Repository, branch string) []types.UnpushedCommit {
	unpushed := []types.UnpushedCommit{}
	if branch == "" || branch == "HEAD" {
		return unpushed
	}
	_, upstream, ok := gitutil.TrackingRef(repo, branch)
	if !ok {
		return unpushed
	}
	head, err := repo.Head()
	if err != nil {
		return unpushed
	}
	pushed, err := gitutil.AncestorSet(repo, upstream, aheadBehindLimit)
	if err != nil {
		return unpushed
	}

	tip, err := repo.CommitObject(head.Hash())
	if err != nil {
		return unpushed
	}
	iter := object.NewCommitPreorderIter(tip, nil, nil)
	defer iter.Close()

	for len(unpushed) < unpushedListLimit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		if pushed[c.Hash] {
			break
		}
		unpushed = append(unpushed, types.UnpushedCommit{
			SHA:      c.Hash.String(),
			ShortSHA: c.Hash.String()[:7],
			Message:  trimMessage(c.Message),
			Author:   c.Author.Name,
			Date:     gitutil.CommitTime(c),
		})
	}
	return unpushed
}

// staleBranchList derives stale branches from already-mined branch info.
// Reachability is not rechecked here; the scanner owns the authoritative
// staleness computation, this keeps the summary self-contained.
func (a *Analyzer) staleBranchList(branches []types.BranchInfo) []types.StaleBranch {
	cutoff := a.now().UTC().AddDate(0, 0, -30)

	stale := []types.StaleBranch{}
	for _, b := range branches {
		if b.IsActive || gitutil.IsDefaultBranch(b.Name) {
			continue
		}
		if b.LastCommitDate == nil || !b.LastCommitDate.Before(cutoff) {
			continue
		}
		stale = append(stale, types.StaleBranch{
			Name:           b.Name,
			LastCommitDate: b.LastCommitDate,
			DaysStale:      int(a.now().UTC().Sub(*b.LastCommitDate).Hours() / 24),
		})
	}
	return stale
}

func repoName(path string) string {
	return filepath.Base(path)
}

func trimMessage(msg string) string {
	return strings.TrimSpace(msg)
}
