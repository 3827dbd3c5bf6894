// Package sqlite implements storage.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/devpulse/devpulse/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	started_at       TIMESTAMP NOT NULL,
	finished_at      TIMESTAMP NOT NULL,
	repo_count       INTEGER NOT NULL DEFAULT 0,
	suggestion_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS created_tickets (
	suggestion_id TEXT PRIMARY KEY,
	ticket_key    TEXT NOT NULL,
	repo          TEXT NOT NULL,
	branch        TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_created_tickets_repo ON created_tickets(repo);
`

// Store is the SQLite-backed storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at path. WAL mode keeps
// concurrent readers cheap.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordRun appends one run to the run log.
func (s *Store) RecordRun(ctx context.Context, run storage.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, repo_count, suggestion_count)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.RepoCount, run.SuggestionCount)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// MarkCreated records a suggestion-to-ticket mapping, overwriting any
// previous ticket key for the same suggestion.
func (s *Store) MarkCreated(ctx context.Context, suggestionID, ticketKey, repo, branch string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO created_tickets (suggestion_id, ticket_key, repo, branch, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(suggestion_id) DO UPDATE SET ticket_key = excluded.ticket_key`,
		suggestionID, ticketKey, repo, branch, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark suggestion created: %w", err)
	}
	return nil
}

// IsCreated reports whether a suggestion already has a ticket.
func (s *Store) IsCreated(ctx context.Context, suggestionID string) (bool, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		`SELECT ticket_key FROM created_tickets WHERE suggestion_id = ?`, suggestionID).Scan(&key)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query created ticket: %w", err)
	}
	return true, nil
}

// CreatedKeys maps already-created suggestion IDs to their ticket keys.
func (s *Store) CreatedKeys(ctx context.Context, suggestionIDs []string) (map[string]string, error) {
	keys := make(map[string]string)
	if len(suggestionIDs) == 0 {
		return keys, nil
	}

	placeholders := strings.Repeat("?,", len(suggestionIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(suggestionIDs))
	for i, id := range suggestionIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT suggestion_id, ticket_key FROM created_tickets WHERE suggestion_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query created tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("failed to scan created ticket: %w", err)
		}
		keys[id] = key
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read created tickets: %w", err)
	}
	return keys, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
