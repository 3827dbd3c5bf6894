package types

import "fmt"

// IssueType is the tracker issue type inferred for a suggestion.
type IssueType string

const (
	TypeStory IssueType = "Story"
	TypeTask  IssueType = "Task"
	TypeBug   IssueType = "Bug"
)

// IsValid checks if the issue type value is valid
func (t IssueType) IsValid() bool {
	switch t {
	case TypeStory, TypeTask, TypeBug:
		return true
	}
	return false
}

// Priority is the tracker priority inferred from change volume.
type Priority string

const (
	PriorityBlocker  Priority = "Blocker"
	PriorityCritical Priority = "Critical"
	PriorityMajor    Priority = "Major"
	PriorityNormal   Priority = "Normal"
	PriorityMinor    Priority = "Minor"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityBlocker, PriorityCritical, PriorityMajor, PriorityNormal, PriorityMinor:
		return true
	}
	return false
}

// Confidence classifies how certain the duplicate matcher is that an
// existing tracker issue already covers a suggestion's work.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ExistingJiraMatch references a tracker issue that may already cover the
// same work as a suggestion.
type ExistingJiraMatch struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	URL     string `json:"url"`
}

// TicketSuggestion is a synthesized, not-yet-created tracker issue derived
// from one group of commits or uncommitted work.
//
// ID is a stable hash of the grouping key (repo, branch, [week], [area]) so
// repeated runs over unchanged history produce the same identity; downstream
// de-duplication depends on this.
type TicketSuggestion struct {
	ID             string              `json:"id"`
	Summary        string              `json:"summary"`
	Description    string              `json:"description"`
	IssueType      IssueType           `json:"issue_type"`
	Priority       Priority            `json:"priority"`
	Labels         []string            `json:"labels,omitempty"`
	Assignee       string              `json:"assignee,omitempty"`
	PRURLs         []string            `json:"pr_urls,omitempty"`
	ProjectKey     string              `json:"project_key"`
	SourceRepo     string              `json:"source_repo"`
	SourceBranch   string              `json:"source_branch"`
	SourceCommits  []string            `json:"source_commits,omitempty"`
	SourceFiles    []string            `json:"source_files,omitempty"`
	AlreadyTracked bool                `json:"already_tracked"`
	ExistingJira   []ExistingJiraMatch `json:"existing_jira,omitempty"`
	Selected       bool                `json:"selected"`
}

// Validate checks that the suggestion is well formed enough to create.
func (t *TicketSuggestion) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("suggestion id is required")
	}
	if t.Summary == "" {
		return fmt.Errorf("summary is required")
	}
	if !t.IssueType.IsValid() {
		return fmt.Errorf("invalid issue type: %s", t.IssueType)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	return nil
}

// DuplicateCheckResult is the aggregate outcome of a duplicate check.
type DuplicateCheckResult struct {
	IsDuplicate  bool                `json:"is_duplicate"`
	Confidence   Confidence          `json:"confidence"`
	ExistingKeys []string            `json:"existing_keys,omitempty"`
	Matches      []ExistingJiraMatch `json:"matches,omitempty"`
}

// CreatedTicket is the result of creating one tracker issue. Failures are
// reported in-band via Error so batch creation never shortens its result.
type CreatedTicket struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Duplicate bool   `json:"duplicate"`
	Error     string `json:"error,omitempty"`
}
