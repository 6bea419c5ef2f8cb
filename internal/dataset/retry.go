package dataset

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds retries of transient source failures with exponential
// backoff. The zero value retries nothing.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool // defaults to IsTransient
}

// DefaultRetryPolicy matches the documented defaults: 3 attempts starting at
// 200ms, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. Permanent
// errors return immediately; exhausting the budget on a transient error
// returns the last error wrapped with ErrRetriesExhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if ctx == nil {
		return fmt.Errorf("dataset: nil context")
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	delay := p.BaseDelay
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn()
		if last == nil {
			return nil
		}
		if !retryable(last) {
			return last
		}
		if attempt == attempts {
			break
		}

		if delay > 0 {
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			delay *= 2
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempts, last)
}
