// Package storage defines the persistence surface the pipeline needs to
// stay idempotent across runs: a record of which suggestion IDs have
// already become tracker tickets, plus a run log.
//
// Suggestion IDs are deterministic for a given grouping key, so this is
// the only cross-run state the pipeline keeps.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunRecord is one pipeline run.
type RunRecord struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	RepoCount       int       `json:"repo_count"`
	SuggestionCount int       `json:"suggestion_count"`
}

// NewRunRecord allocates a run with a fresh identity.
func NewRunRecord(startedAt time.Time) RunRecord {
	return RunRecord{ID: uuid.NewString(), StartedAt: startedAt.UTC()}
}

// Store persists the de-duplication state between runs.
type Store interface {
	// RecordRun appends one run to the run log.
	RecordRun(ctx context.Context, run RunRecord) error

	// MarkCreated records that a suggestion became a tracker ticket.
	// Marking the same suggestion again overwrites the ticket key.
	MarkCreated(ctx context.Context, suggestionID, ticketKey, repo, branch string) error

	// IsCreated reports whether a suggestion already has a ticket.
	IsCreated(ctx context.Context, suggestionID string) (bool, error)

	// CreatedKeys maps each already-created suggestion ID to its ticket
	// key. IDs without a ticket are absent from the result.
	CreatedKeys(ctx context.Context, suggestionIDs []string) (map[string]string, error)

	// Close releases the underlying resources.
	Close() error
}
