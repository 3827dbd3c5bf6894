// Package suggester partitions mined work summaries into coherent groups
// and synthesizes one ticket candidate per group.
//
// Grouping is a per-call decision sequence: uncommitted work first, then
// feature-branch extraction, then calendar-week and content-area grouping
// of whatever remains. Commits that already reference a tracker issue are
// dropped up front; they are tracked elsewhere.
//
// Feature-branch attribution string-matches the branch name inside commit
// messages (a merge-commit heuristic) rather than using branch-parent
// ancestry. The two disagree on repositories that rebase or squash-merge;
// changing this is a product decision, so the heuristic stays.
package suggester

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/gitutil"
	"github.com/devpulse/devpulse/internal/types"
)

// weekSplitThreshold is the branch-group size above which commits are
// further split by calendar week.
const weekSplitThreshold = 12

// Suggester synthesizes ticket candidates from work summaries. It is a
// pure function of its inputs; identical summaries always yield candidates
// with identical IDs.
type Suggester struct {
	DefaultAssignee string
	Labels          []string
}

// New creates a Suggester.
func New(defaultAssignee string, labels []string) *Suggester {
	return &Suggester{DefaultAssignee: defaultAssignee, Labels: labels}
}

// Suggest converts work summaries into ticket candidates. A repository
// with no untracked commits and no uncommitted changes contributes nothing.
func (s *Suggester) Suggest(summaries []types.WorkSummary, projectKey string) []types.TicketSuggestion {
	var suggestions []types.TicketSuggestion
	for i := range summaries {
		suggestions = append(suggestions, s.suggestForRepo(&summaries[i], projectKey)...)
	}
	return suggestions
}

func (s *Suggester) suggestForRepo(summary *types.WorkSummary, projectKey string) []types.TicketSuggestion {
	var suggestions []types.TicketSuggestion

	// Uncommitted work stands alone, independent of commit grouping.
	if !summary.Uncommitted.IsEmpty() {
		suggestions = append(suggestions, s.uncommittedTicket(summary, projectKey))
	}

	// Commits that already carry an issue-key reference are tracked
	// elsewhere and leave the pool.
	var untracked []types.CommitInfo
	for _, c := range summary.RecentCommits {
		if len(c.JiraRefs) == 0 {
			untracked = append(untracked, c)
		}
	}

	// Feature-branch extraction claims commits before week grouping.
	claimed := make(map[string]bool)
	for _, branch := range summary.Branches {
		if gitutil.IsDefaultBranch(branch.Name) {
			continue
		}
		var group []types.CommitInfo
		for _, c := range untracked {
			if claimed[c.SHA] {
				continue
			}
			if strings.Contains(c.Message, branch.Name) {
				group = append(group, c)
			}
		}
		if len(group) == 0 {
			continue
		}
		for _, c := range group {
			claimed[c.SHA] = true
		}

		if len(group) > weekSplitThreshold {
			for _, wg := range groupByWeek(group) {
				suggestions = append(suggestions, s.branchTicket(summary, branch.Name, wg.week, wg.commits, projectKey))
			}
		} else {
			suggestions = append(suggestions, s.branchTicket(summary, branch.Name, "", group, projectKey))
		}
	}

	// Whatever is left groups by calendar week, then by content area.
	var remaining []types.CommitInfo
	for _, c := range untracked {
		if !claimed[c.SHA] {
			remaining = append(remaining, c)
		}
	}
	for _, wg := range groupByWeek(remaining) {
		for _, ag := range groupByArea(wg.commits) {
			suggestions = append(suggestions, s.weekTicket(summary, wg.week, ag.area, ag.commits, projectKey))
		}
	}

	return suggestions
}

// weekGroup is one calendar week's worth of commits.
type weekGroup struct {
	week    string
	commits []types.CommitInfo
}

// groupByWeek buckets commits by ISO calendar week, oldest week first.
func groupByWeek(commits []types.CommitInfo) []weekGroup {
	buckets := make(map[string][]types.CommitInfo)
	for _, c := range commits {
		week := weekLabel(c.Date)
		buckets[week] = append(buckets[week], c)
	}

	weeks := make([]string, 0, len(buckets))
	for week := range buckets {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	groups := make([]weekGroup, 0, len(weeks))
	for _, week := range weeks {
		groups = append(groups, weekGroup{week: week, commits: buckets[week]})
	}
	return groups
}

// areaGroup is an ordered (area, commits) pair.
type areaGroup struct {
	area    string
	commits []types.CommitInfo
}

// groupByArea buckets a week's commits by content area, in the area rule
// table's priority order. Single-commit areas fold into general to avoid
// one-commit tickets, unless general would be the only group anyway.
func groupByArea(commits []types.CommitInfo) []areaGroup {
	buckets := make(map[string][]types.CommitInfo)
	for _, c := range commits {
		area := classifyArea(c.Message)
		buckets[area] = append(buckets[area], c)
	}

	// Fold in the rule table's order so the general group's commit order
	// is stable across runs.
	if len(buckets) > 1 {
		for _, rule := range areaRules {
			group := buckets[rule.area]
			if len(group) == 1 {
				buckets[generalArea] = append(buckets[generalArea], group...)
				delete(buckets, rule.area)
			}
		}
	}

	var groups []areaGroup
	for _, rule := range areaRules {
		if group, ok := buckets[rule.area]; ok {
			groups = append(groups, areaGroup{area: rule.area, commits: group})
		}
	}
	if group, ok := buckets[generalArea]; ok {
		groups = append(groups, areaGroup{area: generalArea, commits: group})
	}
	return groups
}

func weekLabel(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
