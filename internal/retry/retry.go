package retry

import (
	"context"
	"time"
)

// Policy controls how many times an operation is reattempted and how long
// to wait between attempts.
type Policy struct {
	MaxRetries  int           // retries after the first attempt
	Base        time.Duration // initial inter-attempt delay
	Exponential bool          // double the delay each attempt; constant otherwise
}

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	if p.Exponential {
		return ExponentialBackoff(attempt, p.Base)
	}
	return p.Base
}

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}

// Do runs fn up to MaxRetries+1 times. Attempts are strictly sequential.
// retryable decides whether a failure is worth another attempt; a
// non-retryable error is returned immediately. The last error is returned
// once attempts are exhausted.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay(attempt - 1)):
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
