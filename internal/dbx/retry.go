package dbx

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retrier runs a call and repeats it while the returned error is classified
// as retryable, waiting attempt*Step between tries (linear backoff).
//
// MaxRetries counts repeats, not attempts: MaxRetries=3 allows 4 calls in
// total. Once retries are exhausted the error of the last call is returned
// unwrapped.
type Retrier struct {
	MaxRetries uint64
	Step       time.Duration
	Retryable  func(error) bool

	// OnRetry, when set, is called before each wait.
	OnRetry func(ctx context.Context, retry int, wait time.Duration, err error)
}

// LinearBackoff returns a fresh backoff yielding step, 2*step, 3*step, ...
func LinearBackoff(step time.Duration) retry.Backoff {
	var (
		mu sync.Mutex
		n  int64
	)
	return retry.BackoffFunc(func() (time.Duration, bool) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return time.Duration(n) * step, false
	})
}

// Do calls fn until it succeeds, returns a non-retryable error, the retry
// budget is spent or ctx is done.
func (r Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(r.MaxRetries, LinearBackoff(r.Step))

	attempt := 0
	var last error
	if r.OnRetry != nil {
		inner := b
		b = retry.BackoffFunc(func() (time.Duration, bool) {
			wait, stop := inner.Next()
			if !stop {
				r.OnRetry(ctx, attempt, wait, last)
			}
			return wait, stop
		})
	}

	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if r.Retryable != nil && r.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
