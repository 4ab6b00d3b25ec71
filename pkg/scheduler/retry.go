package scheduler

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

const defaultMaxTries = 3

// WithRetry wraps w so that failed attempts are retried with exponential
// backoff. Without options it makes at most three attempts. Returning
// backoff.Permanent(err) from w stops retrying.
func WithRetry[T any](w Work[T], opts ...backoff.RetryOption) Work[T] {
	if len(opts) == 0 {
		opts = []backoff.RetryOption{
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(defaultMaxTries),
		}
	}
	return func(ctx context.Context) (T, error) {
		return backoff.Retry(ctx, func() (T, error) {
			return w(ctx)
		}, opts...)
	}
}
