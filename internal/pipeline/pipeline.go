// Package pipeline runs the full flow: analyze repositories in parallel,
// group the results into ticket candidates, and annotate candidates that
// are already tracked, either in the issue tracker or in the local
// de-duplication store.
package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/devpulse/devpulse/internal/analyzer"
	"github.com/devpulse/devpulse/internal/jira"
	"github.com/devpulse/devpulse/internal/storage"
	"github.com/devpulse/devpulse/internal/suggester"
	"github.com/devpulse/devpulse/internal/types"
)

// DefaultMaxParallel bounds concurrent repository analysis.
const DefaultMaxParallel = 10

// errBranch marks a placeholder summary for a repository that failed to
// analyze. Callers filter on it when rendering.
const errBranch = "error"

// Pipeline wires the analysis stages together. Matcher and Store are
// optional; a nil Matcher skips tracker-side duplicate checks and a nil
// Store skips local de-duplication.
type Pipeline struct {
	Analyzer    *analyzer.Analyzer
	Suggester   *suggester.Suggester
	Matcher     *jira.Matcher
	Store       storage.Store
	MaxParallel int

	now func() time.Time
}

// New creates a Pipeline with the default parallelism.
func New(a *analyzer.Analyzer, s *suggester.Suggester) *Pipeline {
	return &Pipeline{
		Analyzer:    a,
		Suggester:   s,
		MaxParallel: DefaultMaxParallel,
		now:         time.Now,
	}
}

// AnalyzeRepos analyzes every path concurrently under a bounded worker
// pool. The result slice matches the input order regardless of completion
// order, and a failed repository becomes a placeholder summary at its
// index instead of aborting the batch.
func (p *Pipeline) AnalyzeRepos(ctx context.Context, repoPaths []string, opts analyzer.SummaryOptions) []types.WorkSummary {
	width := p.MaxParallel
	if width <= 0 {
		width = DefaultMaxParallel
	}

	results := make([]types.WorkSummary, len(repoPaths))
	sem := semaphore.NewWeighted(int64(width))
	var wg sync.WaitGroup

	for i, path := range repoPaths {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = placeholderSummary(path)
			continue
		}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer sem.Release(1)

			summary, err := p.Analyzer.WorkSummary(ctx, path, opts)
			if err != nil {
				results[i] = placeholderSummary(path)
				return
			}
			results[i] = *summary
		}(i, path)
	}

	wg.Wait()
	return results
}

// SuggestTickets runs the whole pipeline over the given repositories and
// returns annotated ticket candidates. projectKey is required when a
// Matcher is configured; duplicate candidates come back with Selected
// false rather than being dropped.
func (p *Pipeline) SuggestTickets(ctx context.Context, repoPaths []string, projectKey string, opts analyzer.SummaryOptions) ([]types.TicketSuggestion, error) {
	startedAt := p.clock()
	summaries := p.AnalyzeRepos(ctx, repoPaths, opts)
	suggestions := p.Suggester.Suggest(summaries, projectKey)

	if p.Matcher != nil {
		for i := range suggestions {
			result, err := p.Matcher.CheckDuplicate(ctx, suggestions[i].Summary, projectKey, suggestions[i].SourceCommits)
			if err != nil {
				return nil, err
			}
			if result.IsDuplicate {
				suggestions[i].AlreadyTracked = true
				suggestions[i].ExistingJira = result.Matches
				suggestions[i].Selected = false
			}
		}
	}

	if p.Store != nil {
		if err := p.annotateCreated(ctx, suggestions); err != nil {
			return nil, err
		}
		p.recordRun(ctx, startedAt, len(repoPaths), len(suggestions))
	}

	return suggestions, nil
}

// annotateCreated flips off candidates whose suggestion ID already has a
// ticket from an earlier run.
func (p *Pipeline) annotateCreated(ctx context.Context, suggestions []types.TicketSuggestion) error {
	ids := make([]string, len(suggestions))
	for i := range suggestions {
		ids[i] = suggestions[i].ID
	}

	keys, err := p.Store.CreatedKeys(ctx, ids)
	if err != nil {
		return err
	}
	for i := range suggestions {
		key, ok := keys[suggestions[i].ID]
		if !ok {
			continue
		}
		suggestions[i].AlreadyTracked = true
		suggestions[i].Selected = false
		if !hasMatch(suggestions[i].ExistingJira, key) {
			suggestions[i].ExistingJira = append(suggestions[i].ExistingJira, types.ExistingJiraMatch{Key: key})
		}
	}
	return nil
}

// recordRun is best-effort bookkeeping; a failed insert never fails the
// pipeline call.
func (p *Pipeline) recordRun(ctx context.Context, startedAt time.Time, repoCount, suggestionCount int) {
	run := storage.NewRunRecord(startedAt)
	run.FinishedAt = p.clock().UTC()
	run.RepoCount = repoCount
	run.SuggestionCount = suggestionCount
	_ = p.Store.RecordRun(ctx, run)
}

func (p *Pipeline) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func hasMatch(matches []types.ExistingJiraMatch, key string) bool {
	for _, m := range matches {
		if m.Key == key {
			return true
		}
	}
	return false
}

func placeholderSummary(path string) types.WorkSummary {
	return types.WorkSummary{
		RepoName:      filepath.Base(path),
		RepoPath:      path,
		CurrentBranch: errBranch,
	}
}

// Failed reports whether a summary is the placeholder for a repository
// that could not be analyzed.
func Failed(summary *types.WorkSummary) bool {
	return summary.CurrentBranch == errBranch
}
