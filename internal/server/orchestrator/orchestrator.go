// Package orchestrator wires identity events, post-signup hooks and the
// periodic scheduler to the backup upsert. Backup writes are side effects:
// callers never wait for them and their failures never reach the caller.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
	"golang.org/x/sync/errgroup"
)

// Upserter writes one user to the backup store.
type Upserter interface {
	UpsertUser(ctx context.Context, id, email string) bool
}

// Runner is a long-running loop such as the scheduler.
type Runner interface {
	Run(ctx context.Context)
}

type Orchestrator struct {
	users     Upserter
	events    identity.EventSource
	scheduler Runner
	logger    logging.Logger

	// ResubscribeDelay is the pause before re-subscribing after the event
	// source failed.
	ResubscribeDelay time.Duration

	wg sync.WaitGroup
}

// New builds an orchestrator. events and scheduler may be nil.
func New(users Upserter, events identity.EventSource, scheduler Runner, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		users:            users,
		events:           events,
		scheduler:        scheduler,
		logger:           logger.With("module", "orchestrator"),
		ResubscribeDelay: 5 * time.Second,
	}
}

// OnAuthStateChange fires a backup write for a signed-in user. A nil event
// (signed out) is ignored.
func (o *Orchestrator) OnAuthStateChange(ctx context.Context, ev *identity.Event) {
	if ev == nil {
		o.logger.Debug(ctx, "auth state cleared, nothing to sync")
		return
	}
	o.AfterPrimary(ctx, ev.UID, ev.Email)
}

// AfterPrimary queues the backup write that follows a completed primary
// operation (signup, login, profile update) and returns immediately.
func (o *Orchestrator) AfterPrimary(ctx context.Context, id, email string) {
	ctx = context.WithoutCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if !o.users.UpsertUser(ctx, id, email) {
			o.logger.Warn(ctx, "backup write skipped or failed", "id", id)
		}
	}()
}

// Run consumes identity events and drives the scheduler until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if o.events != nil {
		g.Go(func() error {
			o.consume(ctx)
			return nil
		})
	}
	if o.scheduler != nil {
		g.Go(func() error {
			o.scheduler.Run(ctx)
			return nil
		})
	}

	<-ctx.Done()
	return g.Wait()
}

func (o *Orchestrator) consume(ctx context.Context) {
	for {
		err := o.events.Subscribe(ctx, o.OnAuthStateChange)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			o.logger.Error(ctx, "auth event subscription failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(o.ResubscribeDelay):
		}
	}
}

// Drain waits for in-flight backup writes. It gives up when ctx is done.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
