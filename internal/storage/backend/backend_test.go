package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawlog/internal/config"
	"pawlog/internal/domain"
	"pawlog/internal/idhash"
	"pawlog/internal/storage/memory"
	"pawlog/internal/storage/sqlite"
)

func TestOpen_Memory(t *testing.T) {
	store, cleanup, err := Open(context.Background(), config.StorageConfig{Backend: config.BackendMemory}, nil)
	require.NoError(t, err)
	defer cleanup()

	_, ok := store.(*memory.EventStore)
	assert.True(t, ok)
}

func TestOpen_SQLiteCreatesDirAndMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "pawlog.db")

	store, cleanup, err := Open(ctx, config.StorageConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: path,
		Migrate:    true,
	}, nil)
	require.NoError(t, err)
	defer cleanup()

	_, ok := store.(*sqlite.EventStore)
	require.True(t, ok)

	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	err = store.Append(ctx, &domain.Event{
		ID:        idhash.ComputeEventID(domain.EventTypePee, "Inside", ts),
		Type:      domain.EventTypePee,
		Location:  "Inside",
		Timestamp: ts,
	})
	require.NoError(t, err)

	n, err := store.Count(ctx, domain.EventTypePee)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), config.StorageConfig{Backend: "mongo"}, nil)
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestOpen_PostgresBadDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := Open(ctx, config.StorageConfig{
		Backend:     config.BackendPostgres,
		PostgresDSN: "postgres://nobody@127.0.0.1:1/none?connect_timeout=1",
		MaxConns:    1,
	}, nil)
	assert.Error(t, err)
}
