package peers

import (
	"context"
	"time"
)

// Retry executes fn with bounded retries, backoff, and cancellation
// support.
//
// fn receives the 1-based attempt number and must return nil on
// success. Any non-nil error is treated as retryable until the budget
// runs out; the last error is returned.
func Retry(
	ctx context.Context,
	policy RetryPolicy,
	fn func(attempt int) error,
) error {

	backoff := policy.BaseBackoff

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		if attempt > policy.MaxRetries {
			return err
		}

		delay := backoff
		if policy.JitterFn != nil {
			delay += policy.JitterFn(backoff)
		}
		if delay > policy.MaxBackoff {
			delay = policy.MaxBackoff
		}

		select {
		case <-time.After(delay):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
