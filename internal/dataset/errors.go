// Package dataset loads and normalizes raw task data into the shapes the
// evaluators consume, retrying transient source failures and caching fetched
// content on disk keyed by dataset identity and revision.
package dataset

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: network timeouts and
// temporary remote-storage errors. Anything else is permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("dataset: transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ErrRetriesExhausted marks a transient failure that outlived its retry
// budget; it is permanent from the caller's point of view.
var ErrRetriesExhausted = errors.New("dataset: retries exhausted")
