package types

import (
	"fmt"
	"time"
)

// RepoStatus classifies a repository working tree as clean or dirty.
type RepoStatus string

const (
	StatusClean RepoStatus = "clean"
	StatusDirty RepoStatus = "dirty"
)

// IsValid checks if the status value is valid
func (s RepoStatus) IsValid() bool {
	switch s {
	case StatusClean, StatusDirty:
		return true
	}
	return false
}

// StaleBranch is a branch head that is older than the staleness cutoff and
// not reachable from the default branch's recent history.
type StaleBranch struct {
	Name           string     `json:"name"`
	LastCommitDate *time.Time `json:"last_commit_date,omitempty"`
	DaysStale      int        `json:"days_stale"`
	IsMerged       bool       `json:"is_merged"`
}

// RepoInfo is the light status snapshot the scanner attaches to each
// discovered repository. It is recomputed on every scan, never persisted.
type RepoInfo struct {
	Name              string        `json:"name"`
	Path              string        `json:"path"`
	CurrentBranch     string        `json:"current_branch"`
	Status            RepoStatus    `json:"status"`
	UncommittedCount  int           `json:"uncommitted_count"`
	RecentCommitCount int           `json:"recent_commit_count"`
	HasRemote         bool          `json:"has_remote"`
	UnpushedCount     int           `json:"unpushed_count"`
	UntrackedCount    int           `json:"untracked_count"`
	StaleBranches     []StaleBranch `json:"stale_branches,omitempty"`
}

// CommitInfo is one mined commit. Identity is the full SHA; the struct is
// immutable once mined.
type CommitInfo struct {
	SHA          string    `json:"sha"`
	ShortSHA     string    `json:"short_sha"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	AuthorEmail  string    `json:"author_email"`
	Date         time.Time `json:"date"`
	FilesChanged int       `json:"files_changed"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
	JiraRefs     []string  `json:"jira_refs,omitempty"`
}

// Subject returns the first line of the commit message.
func (c *CommitInfo) Subject() string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

// BranchInfo describes one local branch head.
type BranchInfo struct {
	Name           string     `json:"name"`
	IsActive       bool       `json:"is_active"`
	Tracking       string     `json:"tracking,omitempty"`
	Ahead          int        `json:"ahead"`
	Behind         int        `json:"behind"`
	LastCommitDate *time.Time `json:"last_commit_date,omitempty"`
	JiraRefs       []string   `json:"jira_refs,omitempty"`
}

// FileChangeType classifies a single uncommitted file change.
type FileChangeType string

const (
	ChangeAdded     FileChangeType = "added"
	ChangeModified  FileChangeType = "modified"
	ChangeDeleted   FileChangeType = "deleted"
	ChangeRenamed   FileChangeType = "renamed"
	ChangeUntracked FileChangeType = "untracked"
)

// FileChange is a single staged or unstaged change. Diff is best-effort:
// nil when the patch text could not be produced.
type FileChange struct {
	Path       string         `json:"path"`
	ChangeType FileChangeType `json:"change_type"`
	Diff       *string        `json:"diff,omitempty"`
}

// UncommittedChanges captures the working tree state of a repository.
type UncommittedChanges struct {
	Staged    []FileChange `json:"staged"`
	Unstaged  []FileChange `json:"unstaged"`
	Untracked []string     `json:"untracked"`
}

// IsEmpty reports whether there is no uncommitted work at all.
func (u *UncommittedChanges) IsEmpty() bool {
	return len(u.Staged) == 0 && len(u.Unstaged) == 0 && len(u.Untracked) == 0
}

// PullRequestInfo is pull-request metadata obtained from the gh CLI.
type PullRequestInfo struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Branch    string     `json:"branch"`
	State     string     `json:"state"` // OPEN, MERGED, CLOSED
	CreatedAt *time.Time `json:"created_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// UnpushedCommit is a commit on the current branch not yet on its upstream.
type UnpushedCommit struct {
	SHA      string    `json:"sha"`
	ShortSHA string    `json:"short_sha"`
	Message  string    `json:"message"`
	Author   string    `json:"author"`
	Date     time.Time `json:"date"`
}

// WorkSummary is the aggregate result of mining one repository. It is
// constructed fresh per analysis call (or served from the analyzer cache as
// an immutable snapshot) and never mutated after construction.
type WorkSummary struct {
	RepoName        string             `json:"repo_name"`
	RepoPath        string             `json:"repo_path"`
	CurrentBranch   string             `json:"current_branch"`
	Uncommitted     UncommittedChanges `json:"uncommitted"`
	RecentCommits   []CommitInfo       `json:"recent_commits"`
	Branches        []BranchInfo       `json:"branches"`
	PullRequests    []PullRequestInfo  `json:"pull_requests"`
	UnpushedCommits []UnpushedCommit   `json:"unpushed_commits"`
	StaleBranches   []StaleBranch      `json:"stale_branches"`
}

// PullResult is the outcome of a best-effort checkout-and-pull. Failures are
// reported in-band, never as an error return.
type PullResult struct {
	Success       bool   `json:"success"`
	Branch        string `json:"branch"`
	Output        string `json:"output,omitempty"`
	CurrentBranch string `json:"current_branch,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RemoteBranch is a remote branch annotated with the most recent pull
// request that targets it.
type RemoteBranch struct {
	Branch   string `json:"branch"`
	PRNumber int    `json:"pr_number"`
	PRTitle  string `json:"pr_title"`
	PRState  string `json:"pr_state"`
	PRURL    string `json:"pr_url"`
}

// Validate checks the RepoInfo status invariant: dirty iff uncommitted or
// untracked work exists.
func (r *RepoInfo) Validate() error {
	dirty := r.UncommittedCount > 0 || r.UntrackedCount > 0
	if dirty && r.Status != StatusDirty {
		return fmt.Errorf("repo %s has %d uncommitted and %d untracked files but status is %q",
			r.Name, r.UncommittedCount, r.UntrackedCount, r.Status)
	}
	if !dirty && r.Status != StatusClean {
		return fmt.Errorf("repo %s has no uncommitted work but status is %q", r.Name, r.Status)
	}
	return nil
}
