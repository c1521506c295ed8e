package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/usersync/internal/common"
)

// CheckpointStore persists the time of the last successful bulk
// reconciliation. It only throttles the scheduler and is never treated as
// authoritative.
type CheckpointStore struct {
	repo Repository
	key  string
}

func NewCheckpointStore(repo Repository) *CheckpointStore {
	return &CheckpointStore{repo: repo, key: common.CheckpointKey}
}

// LastRun returns the stored checkpoint; ok is false when none was recorded.
func (s *CheckpointStore) LastRun(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := s.repo.Get(ctx, s.key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt checkpoint %q: %w", v, err)
	}
	return t, true, nil
}

// SetLastRun records t as the last successful run.
func (s *CheckpointStore) SetLastRun(ctx context.Context, t time.Time) error {
	return s.repo.Set(ctx, s.key, t.UTC().Format(time.RFC3339Nano))
}

// Reset forgets the checkpoint so the next scheduler tick runs immediately.
func (s *CheckpointStore) Reset(ctx context.Context) error {
	return s.repo.Delete(ctx, s.key)
}
