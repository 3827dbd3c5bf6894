package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "devpulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkAndCheckCreated(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.IsCreated(ctx, "abc123def456")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, s.MarkCreated(ctx, "abc123def456", "PROJ-10", "billing", "main"))

	created, err = s.IsCreated(ctx, "abc123def456")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMarkCreatedOverwritesKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkCreated(ctx, "abc123def456", "PROJ-10", "billing", "main"))
	require.NoError(t, s.MarkCreated(ctx, "abc123def456", "PROJ-11", "billing", "main"))

	keys, err := s.CreatedKeys(ctx, []string{"abc123def456"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"abc123def456": "PROJ-11"}, keys)
}

func TestCreatedKeysFiltersUnknownIDs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkCreated(ctx, "id-one", "PROJ-1", "billing", "main"))
	require.NoError(t, s.MarkCreated(ctx, "id-two", "PROJ-2", "billing", "dev"))

	keys, err := s.CreatedKeys(ctx, []string{"id-one", "id-missing", "id-two"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id-one": "PROJ-1", "id-two": "PROJ-2"}, keys)

	keys, err = s.CreatedKeys(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRecordRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	run := storage.NewRunRecord(time.Now())
	run.FinishedAt = time.Now().UTC()
	run.RepoCount = 3
	run.SuggestionCount = 7
	require.NoError(t, s.RecordRun(ctx, run))

	// Run IDs are unique, duplicates must be rejected.
	assert.Error(t, s.RecordRun(ctx, run))
}

func TestReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devpulse.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkCreated(ctx, "persist-me", "PROJ-5", "billing", "main"))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	created, err := s.IsCreated(ctx, "persist-me")
	require.NoError(t, err)
	assert.True(t, created)
}
