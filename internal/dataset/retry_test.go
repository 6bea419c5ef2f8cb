package dataset

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_TransientExhaustionIsBounded(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return Transient(errors.New("flaky"))
	})

	if calls != 3 {
		t.Fatalf("attempts = %d, want exactly 3", calls)
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	if IsTransient(err) {
		// Exhaustion escalates to permanent.
		t.Fatalf("exhausted error still transient: %v", err)
	}
}

func TestRetryPolicy_PermanentFailsImmediately(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	sentinel := errors.New("malformed schema")
	err := p.Do(context.Background(), func() error {
		calls++
		return sentinel
	})

	if calls != 1 {
		t.Fatalf("attempts = %d, want 1", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
}

func TestRetryPolicy_SucceedsAfterTransient(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return Transient(errors.New("blip"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 2 {
		t.Fatalf("attempts = %d, want 2", calls)
	}
}

func TestRetryPolicy_ContextCancellation(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func() error {
			return Transient(errors.New("flaky"))
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Do did not return after cancellation")
	}
}

func TestTransientWrapping(t *testing.T) {
	if Transient(nil) != nil {
		t.Fatalf("Transient(nil) should be nil")
	}
	inner := errors.New("timeout")
	err := Transient(inner)
	if !IsTransient(err) {
		t.Fatalf("IsTransient = false")
	}
	if !errors.Is(err, inner) {
		t.Fatalf("wrapped error lost")
	}
	if IsTransient(inner) {
		t.Fatalf("bare error should not be transient")
	}
}
