// Package scheduler runs the bulk reconciliation at most once per interval,
// throttled by a locally persisted checkpoint.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/usersync/internal/logging"
)

type State int32

const (
	StateIdle State = iota
	StateDue
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateDue:
		return "due"
	case StateRunning:
		return "running"
	default:
		return "idle"
	}
}

// CheckpointStore remembers when the job last succeeded.
type CheckpointStore interface {
	LastRun(ctx context.Context) (time.Time, bool, error)
	SetLastRun(ctx context.Context, t time.Time) error
}

// Job is the work the scheduler triggers.
type Job func(ctx context.Context) error

type Scheduler struct {
	job           Job
	checkpoints   CheckpointStore
	interval      time.Duration
	checkInterval time.Duration
	logger        logging.Logger

	// Now is the clock. Tests replace it.
	Now func() time.Time

	state atomic.Int32
	mu    sync.Mutex
}

func New(job Job, checkpoints CheckpointStore, interval, checkInterval time.Duration, logger logging.Logger) *Scheduler {
	return &Scheduler{
		job:           job,
		checkpoints:   checkpoints,
		interval:      interval,
		checkInterval: checkInterval,
		logger:        logger.With("module", "scheduler"),
		Now:           time.Now,
	}
}

// State reports the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Tick runs the job if it is due. ran is false when the job was not due or a
// previous run is still in progress. On failure the checkpoint is left
// untouched so the next tick tries again.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if !s.mu.TryLock() {
		s.logger.Debug(ctx, "sync still running, tick skipped")
		return false, nil
	}
	defer s.mu.Unlock()

	now := s.Now()
	if !s.due(ctx, now) {
		return false, nil
	}

	s.state.Store(int32(StateRunning))
	defer s.state.Store(int32(StateIdle))

	if err := s.job(ctx); err != nil {
		s.logger.Error(ctx, "scheduled sync failed", "error", err)
		return true, err
	}

	if err := s.checkpoints.SetLastRun(ctx, now); err != nil {
		s.logger.Warn(ctx, "failed to store sync checkpoint", "error", err)
		return true, err
	}
	s.logger.Info(ctx, "scheduled sync completed", "checkpoint", now.UTC().Format(time.RFC3339))
	return true, nil
}

func (s *Scheduler) due(ctx context.Context, now time.Time) bool {
	last, ok, err := s.checkpoints.LastRun(ctx)
	if err != nil {
		s.logger.Warn(ctx, "unreadable sync checkpoint, treating as absent", "error", err)
		ok = false
	}

	if ok {
		elapsed := now.Sub(last)
		if elapsed < s.interval {
			s.logger.Debug(ctx, "sync not due",
				"since_last", elapsed.Round(time.Minute).String(),
				"next_in", (s.interval - elapsed).Round(time.Minute).String())
			return false
		}
	}

	s.state.Store(int32(StateDue))
	return true
}

// Run ticks immediately and then every check interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	_, _ = s.Tick(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Tick(ctx)
		}
	}
}
