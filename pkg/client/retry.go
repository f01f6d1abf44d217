package client

import (
	"context"
	"time"
)

// Backoff between retry attempts. A variable so fast tests can shrink it.
var retryBaseDelay = 200 * time.Millisecond

// WithRetry calls op until it succeeds or attempts total tries are
// exhausted. The delay between tries grows exponentially. Only the final
// attempt's error is returned; intermediate failures are not reported.
func WithRetry[T any](ctx context.Context, op func(context.Context) (T, error), attempts int) (T, error) {
	if attempts < 1 {
		attempts = 1
	}
	var zero T
	var lastErr error
	delay := retryBaseDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			if delay < 2*time.Second {
				delay *= 2
			}
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
