package retry

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientErrors(t *testing.T) {
	var notified []int
	cfg := Config{
		MaxRetries:     5,
		InitialBackoff: time.Millisecond,
		Notify: func(attempt int, err error, _ time.Duration) {
			notified = append(notified, attempt)
			assert.ErrorIs(t, err, syscall.EADDRINUSE)
		},
	}

	called := 0
	err := Do(context.Background(), cfg, func() error {
		called++
		if called < 3 {
			return syscall.EADDRINUSE
		}
		return nil
	}, func(err error) bool {
		return errors.Is(err, syscall.EADDRINUSE)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, called)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: time.Millisecond}
	permanent := errors.New("permission denied")

	called := 0
	err := Do(context.Background(), cfg, func() error {
		called++
		return permanent
	}, func(err error) bool {
		return errors.Is(err, syscall.EADDRINUSE)
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, called)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	called := 0
	err := Do(context.Background(), cfg, func() error {
		called++
		return syscall.EADDRINUSE
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)
	assert.Contains(t, err.Error(), "failed after 3 retries")
	assert.Equal(t, 3, called)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxRetries: 3, InitialBackoff: time.Hour}

	err := Do(ctx, cfg, func() error {
		cancel()
		return syscall.EADDRINUSE
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		attempt int
		want    time.Duration
	}{
		{"first retry", Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond}, 1, 100 * time.Millisecond},
		{"third retry doubles twice", Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond}, 3, 400 * time.Millisecond},
		{"capped", Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 250 * time.Millisecond}, 3, 250 * time.Millisecond},
		{"jitter", Config{MaxRetries: 2, InitialBackoff: 100 * time.Millisecond, Jitter: 0.5}, 1, 125 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateBackoff(tt.cfg, tt.attempt))
		})
	}
}
