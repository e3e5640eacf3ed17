package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithExponentialBackoffSucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(5), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		if calls < 3 {
			return false, errors.New("transient")
		}
		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithExponentialBackoffStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(5), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return true, permanent
	})

	require.Error(t, err)
	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestWithExponentialBackoffExhaustsAttempts(t *testing.T) {
	transient := errors.New("still down")
	calls := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, transient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "operation failed after 3 attempts")
}

func TestWithExponentialBackoffRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &Config{
		MaxAttempts:  5,
		InitialDelay: time.Minute,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WithExponentialBackoff(ctx, cfg, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := &Config{
		MaxAttempts:  10,
		InitialDelay: time.Second,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, time.Second, backoffDelay(cfg, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(cfg, 2))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 3))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 8))
}
