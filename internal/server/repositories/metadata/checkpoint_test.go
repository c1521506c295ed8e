package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/usersync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkpointDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _ := memoryStore(t)
	return db
}

func TestCheckpointStore_AbsentThenSet(t *testing.T) {
	s := NewCheckpointStore(NewSQLiteRepository(checkpointDB(t)))
	ctx := context.Background()

	_, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2025, 3, 1, 12, 30, 0, 123, time.FixedZone("X", 3600))
	require.NoError(t, s.SetLastRun(ctx, at))

	got, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}

func TestCheckpointStore_Reset(t *testing.T) {
	s := NewCheckpointStore(NewSQLiteRepository(checkpointDB(t)))
	ctx := context.Background()

	require.NoError(t, s.SetLastRun(ctx, time.Now()))
	require.NoError(t, s.Reset(ctx))

	_, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpointStore_CorruptValue(t *testing.T) {
	repo := NewSQLiteRepository(checkpointDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, common.CheckpointKey, "yesterday"))

	_, ok, err := NewCheckpointStore(repo).LastRun(ctx)
	require.Error(t, err)
	assert.False(t, ok)
}
