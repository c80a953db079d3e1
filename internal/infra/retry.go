package infra

import (
	"context"
	"errors"
	"time"
)

// ── Retry policy ──────────────────────────────────────────────────────────────
// One policy object applied uniformly at the backing-store-adapter boundary
// and in the audit retry worker, instead of ad hoc retry loops per call site.

// ErrNotRetryable wraps errors the policy must not re-attempt.
var ErrNotRetryable = errors.New("not retryable")

// RetryPolicy defines max attempts, the backoff curve, and which errors are
// worth re-attempting.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable decides per error; nil means every error is retryable.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the policy used for store round trips.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do runs fn up to MaxAttempts times with exponential backoff between
// attempts. It returns the last error when all attempts fail, and stops
// early when the context is cancelled or the error is not retryable.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, ErrNotRetryable) {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
