package httputil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Retry runs an operation up to Attempts times, waiting Delay*n before the
// n-th retry.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry is the policy used for every external oracle call.
var DefaultRetry = Retry{Attempts: 2, Delay: time.Second}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func (r Retry) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return lastErr
		}

		if attempt < attempts {
			delay := r.Delay * time.Duration(attempt)
			log.Debug().Err(lastErr).Str("op", name).Int("attempt", attempt).Dur("backoff", delay).Msg("retrying")
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
