package loader

import (
	"context"
	"errors"
	"time"

	"github.com/mcncl/jsonbrowse/internal/logging"
)

// retryableError marks a transient failure, such as a network error or a
// 5xx response, that is worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryable(err error) error {
	return &retryableError{err: err}
}

// retry runs fn up to attempts times, doubling delay after each retryable
// failure. Other errors are returned at once. Retries are logged with the
// logger carried by ctx.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	logger := logging.FromContext(ctx)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !errors.As(err, new(*retryableError)) {
			return err
		}

		if i < attempts-1 {
			logger.Warn("retrying", "attempt", i+1, "of", attempts, "delay", delay, "err", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}

	var re *retryableError
	if errors.As(lastErr, &re) {
		return re.err
	}
	return lastErr
}
