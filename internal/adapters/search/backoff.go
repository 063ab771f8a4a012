package search

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/triad-ai/triad/internal/core"
)

// Backoff retries a request while core.IsRetryable reports its error as
// transient. The wait doubles per attempt up to Max, spread by Jitter.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
	// Jitter in [0,1] moves each wait by up to that fraction either way.
	Jitter float64
}

// DefaultBackoff returns the backoff used for attempts tries.
func DefaultBackoff(attempts int) Backoff {
	if attempts < 1 {
		attempts = 1
	}
	return Backoff{Attempts: attempts, Base: 250 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2}
}

// Wait returns how long to sleep after the given failed attempt (1-based).
func (b Backoff) Wait(attempt int) time.Duration {
	d := b.Base << (attempt - 1)
	if d > b.Max || d <= 0 {
		d = b.Max
	}
	if b.Jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * b.Jitter * float64(d))
	}
	return d
}

// Do calls fn until it succeeds, fails permanently, ctx ends or the attempts
// run out. onRetry, when set, is told about every retry before the wait.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error, onRetry func(attempt int, err error, wait time.Duration)) error {
	attempts := max(b.Attempts, 1)
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil || !core.IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}

		wait := b.Wait(attempt)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
