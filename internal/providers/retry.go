package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	defaultRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// retryable reports whether a failed attempt may be repeated. Only rate
// limiting and 5xx responses qualify; auth and decode failures never do.
func retryable(err error) bool {
	var rl *rateLimitError
	var se *serverError
	return errors.As(err, &rl) || errors.As(err, &se)
}

// withRetry runs fn up to attempts times. With attempts == 1 (the default)
// the call is made exactly once.
func withRetry(ctx context.Context, provider string, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(delay),
		retry.MaxDelay(maxRetryDelay),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("completion attempt failed", "provider", provider, "attempt", n+1, "of", attempts, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
}
