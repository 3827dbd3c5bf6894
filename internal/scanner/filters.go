package scanner

import (
	"context"
	"sort"
	"strings"

	"github.com/devpulse/devpulse/internal/types"
)

// SortField selects the ordering of filtered scan results.
type SortField string

const (
	SortByName        SortField = "name"
	SortByStatus      SortField = "status"
	SortByUncommitted SortField = "uncommitted"
	SortByCommits     SortField = "commits"
	SortByActivity    SortField = "activity"
)

// Filters narrows and orders a scan result.
type Filters struct {
	// Status keeps only repositories in the given state when non-empty.
	Status types.RepoStatus

	// HasUncommitted, when set, keeps repositories with (true) or without
	// (false) uncommitted changes.
	HasUncommitted *bool

	// MinCommits keeps repositories with at least this many recent commits.
	MinCommits int

	SortBy   SortField
	SortDesc bool
}

// ScanWithFilters runs a scan and applies the given filters and ordering.
func (s *Scanner) ScanWithFilters(ctx context.Context, f Filters) []types.RepoInfo {
	repos := s.Scan(ctx, false)

	filtered := repos[:0]
	for _, r := range repos {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.HasUncommitted != nil {
			if *f.HasUncommitted != (r.UncommittedCount > 0) {
				continue
			}
		}
		if f.MinCommits > 0 && r.RecentCommitCount < f.MinCommits {
			continue
		}
		filtered = append(filtered, r)
	}
	repos = filtered

	less := sortFunc(f.SortBy)
	sort.SliceStable(repos, func(i, j int) bool {
		if f.SortDesc {
			return less(repos[j], repos[i])
		}
		return less(repos[i], repos[j])
	})
	return repos
}

func sortFunc(field SortField) func(a, b types.RepoInfo) bool {
	switch field {
	case SortByStatus:
		return func(a, b types.RepoInfo) bool { return a.Status < b.Status }
	case SortByUncommitted:
		return func(a, b types.RepoInfo) bool { return a.UncommittedCount < b.UncommittedCount }
	case SortByCommits:
		return func(a, b types.RepoInfo) bool { return a.RecentCommitCount < b.RecentCommitCount }
	case SortByActivity:
		return func(a, b types.RepoInfo) bool {
			return a.UncommittedCount+a.RecentCommitCount < b.UncommittedCount+b.RecentCommitCount
		}
	default:
		return func(a, b types.RepoInfo) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
}
