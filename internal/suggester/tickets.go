package suggester

import (
	"fmt"
	"strings"

	"github.com/devpulse/devpulse/internal/types"
)

const (
	maxFileBullets   = 20
	maxCommitBullets = 15
	maxSourceFiles   = 50
)

// uncommittedTicket covers staged, unstaged, and untracked files on the
// current branch.
func (s *Suggester) uncommittedTicket(summary *types.WorkSummary, projectKey string) types.TicketSuggestion {
	uc := summary.Uncommitted
	files := uniqueFiles(uc)

	var b strings.Builder
	fmt.Fprintf(&b, "Uncommitted work in **%s** on branch `%s`.\n\n", summary.RepoName, summary.CurrentBranch)
	fmt.Fprintf(&b, "%d staged, %d unstaged, %d untracked file(s).\n\n", len(uc.Staged), len(uc.Unstaged), len(uc.Untracked))
	b.WriteString("Files:\n")
	for i, f := range files {
		if i == maxFileBullets {
			fmt.Fprintf(&b, "- ... and %d more\n", len(files)-maxFileBullets)
			break
		}
		fmt.Fprintf(&b, "- %s\n", f)
	}

	sourceFiles := files
	if len(sourceFiles) > maxSourceFiles {
		sourceFiles = sourceFiles[:maxSourceFiles]
	}

	return types.TicketSuggestion{
		ID:           suggestionID(summary.RepoName, "uncommitted"),
		Summary:      fmt.Sprintf("[%s] Uncommitted work on %s", summary.RepoName, summary.CurrentBranch),
		Description:  b.String(),
		IssueType:    issueTypeFromChanges(uc),
		Priority:     priorityFromFileCount(len(files)),
		Labels:       s.Labels,
		Assignee:     s.DefaultAssignee,
		PRURLs:       prURLsForBranch(summary, summary.CurrentBranch),
		ProjectKey:   projectKey,
		SourceRepo:   summary.RepoName,
		SourceBranch: summary.CurrentBranch,
		SourceFiles:  sourceFiles,
		Selected:     true,
	}
}

// branchTicket covers commits attributed to a feature branch. week is
// empty unless the branch group was large enough to split.
func (s *Suggester) branchTicket(summary *types.WorkSummary, branch, week string, commits []types.CommitInfo, projectKey string) types.TicketSuggestion {
	theme := themeLabel(commits)

	var b strings.Builder
	fmt.Fprintf(&b, "Work on **%s**, branch `%s`.\n\n", summary.RepoName, branch)
	if week != "" {
		fmt.Fprintf(&b, "Week %s.\n\n", week)
	}
	writeCommitBullets(&b, commits)

	idParts := []string{summary.RepoName, branch}
	if week != "" {
		idParts = append(idParts, week)
	}

	return types.TicketSuggestion{
		ID:            suggestionID(idParts...),
		Summary:       candidateSummary(summary.RepoName, theme, len(commits), "", week),
		Description:   b.String(),
		IssueType:     inferIssueType(commits),
		Priority:      priorityForCommits(commits),
		Labels:        s.Labels,
		Assignee:      s.DefaultAssignee,
		PRURLs:        prURLsForBranch(summary, branch),
		ProjectKey:    projectKey,
		SourceRepo:    summary.RepoName,
		SourceBranch:  branch,
		SourceCommits: commitSHAs(commits),
		Selected:      true,
	}
}

// weekTicket covers the residual commits of one calendar week and one
// content area.
func (s *Suggester) weekTicket(summary *types.WorkSummary, week, area string, commits []types.CommitInfo, projectKey string) types.TicketSuggestion {
	theme := themeLabel(commits)

	var b strings.Builder
	fmt.Fprintf(&b, "Work on **%s** during week %s", summary.RepoName, week)
	if area != generalArea {
		fmt.Fprintf(&b, ", area %s", area)
	}
	b.WriteString(".\n\n")
	writeCommitBullets(&b, commits)

	idParts := []string{summary.RepoName, summary.CurrentBranch, week}
	if area != generalArea {
		idParts = append(idParts, area)
	}

	return types.TicketSuggestion{
		ID:            suggestionID(idParts...),
		Summary:       candidateSummary(summary.RepoName, theme, len(commits), area, week),
		Description:   b.String(),
		IssueType:     inferIssueType(commits),
		Priority:      priorityForCommits(commits),
		Labels:        s.Labels,
		Assignee:      s.DefaultAssignee,
		PRURLs:        prURLsForBranch(summary, summary.CurrentBranch),
		ProjectKey:    projectKey,
		SourceRepo:    summary.RepoName,
		SourceBranch:  summary.CurrentBranch,
		SourceCommits: commitSHAs(commits),
		Selected:      true,
	}
}

// candidateSummary renders "[repo] Theme (N commits) [area] [week]".
// The commit count appears only past one commit, the area qualifier only
// outside general.
func candidateSummary(repo, theme string, commitCount int, area, week string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", repo, theme)
	if commitCount > 1 {
		fmt.Fprintf(&b, " (%d commits)", commitCount)
	}
	if area != "" && area != generalArea {
		fmt.Fprintf(&b, " [%s]", area)
	}
	if week != "" {
		fmt.Fprintf(&b, " [%s]", week)
	}
	return b.String()
}

func writeCommitBullets(b *strings.Builder, commits []types.CommitInfo) {
	b.WriteString("Commits:\n")
	for i, c := range commits {
		if i == maxCommitBullets {
			fmt.Fprintf(b, "- ... and %d more\n", len(commits)-maxCommitBullets)
			break
		}
		fmt.Fprintf(b, "- %s %s\n", c.ShortSHA, truncate(c.Subject(), 80))
	}
}

func commitSHAs(commits []types.CommitInfo) []string {
	shas := make([]string, len(commits))
	for i, c := range commits {
		shas[i] = c.SHA
	}
	return shas
}

// uniqueFiles flattens an uncommitted-changes snapshot into a deduplicated
// path list, staged before unstaged before untracked.
func uniqueFiles(uc types.UncommittedChanges) []string {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	for _, fc := range uc.Staged {
		add(fc.Path)
	}
	for _, fc := range uc.Unstaged {
		add(fc.Path)
	}
	for _, path := range uc.Untracked {
		add(path)
	}
	return files
}

// issueTypeFromChanges classifies uncommitted work: test-heavy changes are
// a Task, brand new files suggest a Story, anything else is a Task.
func issueTypeFromChanges(uc types.UncommittedChanges) types.IssueType {
	for _, path := range uniqueFiles(uc) {
		if strings.Contains(strings.ToLower(path), "test") {
			return types.TypeTask
		}
	}
	for _, fc := range uc.Staged {
		if fc.ChangeType == types.ChangeAdded {
			return types.TypeStory
		}
	}
	for _, fc := range uc.Unstaged {
		if fc.ChangeType == types.ChangeAdded {
			return types.TypeStory
		}
	}
	if len(uc.Untracked) > 0 {
		return types.TypeStory
	}
	return types.TypeTask
}

// priorityFromFileCount mirrors the commit-stats thresholds for working
// tree churn.
func priorityFromFileCount(n int) types.Priority {
	switch {
	case n > 20:
		return types.PriorityCritical
	case n > 10:
		return types.PriorityMajor
	case n > 3:
		return types.PriorityNormal
	default:
		return types.PriorityMinor
	}
}

// priorityForCommits aggregates change volume across a group before
// applying the priority thresholds.
func priorityForCommits(commits []types.CommitInfo) types.Priority {
	var files, insertions int
	for _, c := range commits {
		files += c.FilesChanged
		insertions += c.Insertions
	}
	return inferPriority(files, insertions)
}

func prURLsForBranch(summary *types.WorkSummary, branch string) []string {
	var urls []string
	for _, pr := range summary.PullRequests {
		if pr.Branch == branch {
			urls = append(urls, pr.URL)
		}
	}
	return urls
}
