package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 60*time.Second, p.RateLimitCooldown)
	assert.Equal(t, time.Duration(0), p.FullRetryDelay)
	assert.Equal(t, 3*time.Second, p.IncrementalRetryDelay)
}

func TestZeroPolicyHasNoWaits(t *testing.T) {
	p := ZeroPolicy()

	start := time.Now()
	require.NoError(t, Sleep(context.Background(), p.RateLimitCooldown))
	require.NoError(t, Sleep(context.Background(), p.IncrementalRetryDelay))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepZeroOnlyChecksContext(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}

func TestSleepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDoSuccess(t *testing.T) {
	count := 0
	fn := func() error {
		count++
		if count < 3 {
			return errors.New("not yet")
		}
		return nil
	}

	opts := DefaultOptions()
	opts.InitialInterval = 1 * time.Millisecond

	err := Do(context.Background(), fn, opts)
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDoProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("Do never exceeds max attempts", prop.ForAll(
		func(maxAttempts int) bool {
			count := 0
			fn := func() error {
				count++
				return errors.New("transient error")
			}

			opts := Options{
				MaxAttempts:     maxAttempts,
				InitialInterval: 1 * time.Microsecond,
				MaxInterval:     10 * time.Microsecond,
				Multiplier:      2.0,
			}

			_ = Do(context.Background(), fn, opts)
			return count == maxAttempts
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func() error {
		return errors.New("still failing")
	}

	opts := DefaultOptions()
	opts.InitialInterval = 100 * time.Millisecond

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, fn, opts)
	assert.ErrorIs(t, err, context.Canceled)
}
