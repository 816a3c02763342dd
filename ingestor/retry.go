package ingestor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy wraps an operation with retries.
type RetryPolicy interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type nopRetry struct{}

func (nopRetry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// BackoffRetry retries retryable failures with exponential backoff.
//
// Only errors classified as retryable (see IsRetryable) are retried; any other
// error stops immediately and is returned as is.
type BackoffRetry struct {
	// Attempts is the total number of calls, including the first one.
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (r BackoffRetry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Attempts <= 1 {
		return fn(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		bo.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		bo.MaxInterval = r.MaxInterval
	}
	if bo.MaxInterval < bo.InitialInterval {
		bo.MaxInterval = bo.InitialInterval
	}
	bo.MaxElapsedTime = 0 // bounded by Attempts

	b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.Attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
