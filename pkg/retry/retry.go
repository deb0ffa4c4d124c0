// Package retry runs connection attempts with a fixed delay between them.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Startup calls fn until it succeeds, at most attempts times, waiting delay between
// attempts. It returns the last error once attempts are exhausted or ctx is done.
func Startup(ctx context.Context, logger *zap.Logger, name string, attempts int, delay time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)
	return run(ctx, logger, name, b, fn)
}

// Forever calls fn until it succeeds or ctx is done, waiting delay between attempts.
func Forever(ctx context.Context, logger *zap.Logger, name string, delay time.Duration, fn func(context.Context) error) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(delay), ctx)
	return run(ctx, logger, name, b, fn)
}

func run(ctx context.Context, logger *zap.Logger, name string, b backoff.BackOff, fn func(context.Context) error) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return fn(ctx)
		},
		b,
		func(err error, next time.Duration) {
			logger.Warn("connection attempt failed",
				zap.String("target", name),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		},
	)
}
