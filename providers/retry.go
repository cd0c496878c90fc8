package providers

import (
	"context"
	"math"
	"time"
)

// retryPolicy bounds how often a gateway call is attempted.
type retryPolicy struct {
	maxAttempts  int
	initialDelay time.Duration
}

func newRetryPolicy(maxRetries int, initialDelay time.Duration) retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retryPolicy{maxAttempts: maxRetries + 1, initialDelay: initialDelay}
}

// do runs fn until it succeeds, returns a non-retryable error, or attempts
// run out. Delays grow exponentially: d, 2d, 4d...
func (p retryPolicy) do(ctx context.Context, fn func() (retryable bool, err error)) error {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * p.initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retryable, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}
