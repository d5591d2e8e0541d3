package sqlstore

import (
	"context"
	"time"
)

// RetryConfig configures retries of transactions aborted by the database.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  20 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// withRetry runs fn until it succeeds, fails with a non-retryable error, or retries run out.
func withRetry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func() error) error {
	delay := cfg.InitialDelay
	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		err = fn()
		if err == nil || retryable == nil || !retryable(err) {
			return err
		}
	}
	return err
}
