package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/usersync/internal/common"
	"github.com/dmitrijs2005/usersync/internal/dbx"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/backup"
	"github.com/dmitrijs2005/usersync/internal/server/documents"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
	"github.com/dmitrijs2005/usersync/internal/server/models"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersync/internal/timex"
	"github.com/google/uuid"
)

// Report is the outcome of one reconciliation run.
type Report = models.SyncReport

// ReportSink archives finished reports.
type ReportSink interface {
	Save(ctx context.Context, r *Report) error
}

// Reconciler copies every known user into the backup store in batches.
// Only one run may be active at a time.
type Reconciler struct {
	backup      *backup.Client
	repomanager repomanager.RepositoryManager
	users       *UserService
	lister      identity.Lister
	profiles    documents.ProfileStore
	sink        ReportSink
	batchSize   int
	logger      logging.Logger

	running atomic.Bool
	mu      sync.RWMutex
	last    *Report

	now func() time.Time
}

// NewReconciler wires the sources and the backup store. lister, profiles and
// sink may be nil; the corresponding run then fails or archiving is skipped.
func NewReconciler(client *backup.Client, m repomanager.RepositoryManager, users *UserService,
	lister identity.Lister, profiles documents.ProfileStore, sink ReportSink, batchSize int, logger logging.Logger) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{
		backup:      client,
		repomanager: m,
		users:       users,
		lister:      lister,
		profiles:    profiles,
		sink:        sink,
		batchSize:   batchSize,
		logger:      logger.With("module", "reconciler"),
		now:         time.Now,
	}
}

// Reconcile upserts users inside a single transaction and returns how many
// rows were written. Records without id or email are skipped. Any statement
// failure rolls the whole batch back and is returned.
func (r *Reconciler) Reconcile(ctx context.Context, users []identity.Identity) (int, error) {
	valid := make([]identity.Identity, 0, len(users))
	for _, u := range users {
		if u.Valid() {
			valid = append(valid, u)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	err := r.backup.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repomanager.Users(tx)
		for _, u := range valid {
			if err := repo.Upsert(ctx, u.ID, u.Email); err != nil {
				return fmt.Errorf("upsert %s: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(valid), nil
}

// SyncFromIdentityProvider lists every identity-provider account page by
// page and reconciles each page as one batch.
func (r *Reconciler) SyncFromIdentityProvider(ctx context.Context) (*Report, error) {
	if r.lister == nil {
		return nil, identity.ErrNotConfigured
	}
	return r.run(ctx, models.SourceIdentity, func(ctx context.Context, rep *Report) error {
		token := ""
		for {
			page, err := r.lister.ListUsers(ctx, r.batchSize, token)
			if err != nil {
				return fmt.Errorf("list users page %d: %w", rep.Pages+1, err)
			}
			rep.Pages++
			rep.Listed += len(page.Users)
			if err := r.applyBatch(ctx, rep, page.Users); err != nil {
				return err
			}

			if page.NextToken == "" {
				return nil
			}
			token = page.NextToken
		}
	})
}

// SyncFromDocumentStore reconciles every profile document in batches.
func (r *Reconciler) SyncFromDocumentStore(ctx context.Context) (*Report, error) {
	if r.profiles == nil {
		return nil, fmt.Errorf("document store not configured")
	}
	return r.run(ctx, models.SourceDocuments, func(ctx context.Context, rep *Report) error {
		profiles, err := r.profiles.ListProfiles(ctx)
		if err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		rep.Listed = len(profiles)

		for start := 0; start < len(profiles); start += r.batchSize {
			end := min(start+r.batchSize, len(profiles))
			rep.Pages++
			if err := r.applyBatch(ctx, rep, profiles[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Sync dispatches to the run for source.
func (r *Reconciler) Sync(ctx context.Context, source string) (*Report, error) {
	switch source {
	case models.SourceIdentity:
		return r.SyncFromIdentityProvider(ctx)
	case models.SourceDocuments:
		return r.SyncFromDocumentStore(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown sync source %q", common.ErrorValidation, source)
	}
}

// Job adapts Sync for the scheduler. A run that left any valid record
// unwritten counts as failed.
func (r *Reconciler) Job(source string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		rep, err := r.Sync(ctx, source)
		if err != nil {
			return err
		}
		if !rep.OK() {
			return fmt.Errorf("%d of %d users not written", rep.Failed, rep.Listed)
		}
		return nil
	}
}

// LastReport returns a copy of the most recent finished report, or nil.
func (r *Reconciler) LastReport() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

// Running reports whether a reconciliation is in progress.
func (r *Reconciler) Running() bool {
	return r.running.Load()
}

func (r *Reconciler) run(ctx context.Context, source string, fn func(context.Context, *Report) error) (*Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer r.running.Store(false)

	started := r.now()
	rep := &Report{RunID: uuid.NewString(), Source: source, StartedAt: started.UTC()}
	r.logger.Info(ctx, "reconciliation started", "run_id", rep.RunID, "source", source)

	err := fn(ctx, rep)
	rep.Duration = timex.Duration{Duration: r.now().Sub(started)}
	if err != nil {
		rep.Err = err.Error()
		r.logger.Error(ctx, "reconciliation failed", "run_id", rep.RunID, "error", err)
	} else {
		r.logger.Info(ctx, "reconciliation finished",
			"run_id", rep.RunID,
			"listed", rep.Listed,
			"succeeded", rep.Succeeded,
			"skipped", rep.Skipped,
			"failed", rep.Failed,
			"pages", rep.Pages,
			"duration", rep.Duration.String(),
		)
	}

	r.mu.Lock()
	r.last = rep
	r.mu.Unlock()

	if r.sink != nil {
		if serr := r.sink.Save(ctx, rep); serr != nil {
			r.logger.Warn(ctx, "failed to archive sync report", "run_id", rep.RunID, "error", serr)
		}
	}

	return rep, err
}

// applyBatch reconciles one batch. When the transaction fails on a
// row-specific error it falls back to one upsert per user. When the store is
// down the valid records are counted as failed and the error is returned so
// the run stops instead of retrying every user against a dead store.
func (r *Reconciler) applyBatch(ctx context.Context, rep *Report, batch []identity.Identity) error {
	n, err := r.Reconcile(ctx, batch)
	if err == nil {
		rep.Succeeded += n
		rep.Skipped += len(batch) - n
		return nil
	}

	if storeDown(err) {
		for _, u := range batch {
			if u.Valid() {
				rep.Failed++
			} else {
				rep.Skipped++
			}
		}
		return fmt.Errorf("backup store unreachable: %w", err)
	}

	r.logger.Warn(ctx, "batch reconciliation failed, falling back to single upserts",
		"run_id", rep.RunID, "size", len(batch), "error", err)

	for _, u := range batch {
		if !u.Valid() {
			rep.Skipped++
			continue
		}
		if r.users.UpsertUser(ctx, u.ID, u.Email) {
			rep.Succeeded++
		} else {
			rep.Failed++
		}
	}
	return nil
}

func storeDown(err error) bool {
	return errors.Is(err, common.ErrStoreUnavailable) || backup.IsTransient(err)
}
