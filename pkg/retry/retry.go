package retry

import (
	"context"
	"time"
)

// Policy holds the fixed waits used by the sync engine's pagination
// protocol. Retries on these paths are unbounded; only the waits differ, so
// tests inject a zero-wait policy instead of burning wall-clock time.
type Policy struct {
	// RateLimitCooldown is the wait after the remote service answers 429.
	RateLimitCooldown time.Duration
	// FullRetryDelay is the wait before re-requesting a failed page during a
	// full import.
	FullRetryDelay time.Duration
	// IncrementalRetryDelay is the wait before re-requesting a failed page
	// during an incremental update.
	IncrementalRetryDelay time.Duration
}

// DefaultPolicy returns the production waits.
func DefaultPolicy() Policy {
	return Policy{
		RateLimitCooldown:     60 * time.Second,
		FullRetryDelay:        0,
		IncrementalRetryDelay: 3 * time.Second,
	}
}

// ZeroPolicy returns a policy with no waits at all.
func ZeroPolicy() Policy {
	return Policy{}
}

// Sleep waits for d or until the context is cancelled, whichever comes
// first. A non-positive d only checks the context.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func() error

// Options defines bounded exponential backoff used outside the pagination
// protocol (startup connections and the like).
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultOptions returns sensible bounded-backoff defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

// Do executes fn with bounded exponential backoff.
func Do(ctx context.Context, fn RetryableFunc, opts Options) error {
	var lastErr error
	interval := opts.InitialInterval

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}

		if err := Sleep(ctx, interval); err != nil {
			return err
		}

		next := float64(interval) * opts.Multiplier
		if next > float64(opts.MaxInterval) {
			interval = opts.MaxInterval
		} else {
			interval = time.Duration(next)
		}
	}

	return lastErr
}
