package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), zerolog.Nop(), testConfig(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientUntilCeiling(t *testing.T) {
	calls := 0
	boom := MarkTransient(errors.New("connection reset"))
	err := Do(context.Background(), zerolog.Nop(), testConfig(), "op", func() error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.ErrorIs(t, err, boom)
}

func TestDoRecoversMidway(t *testing.T) {
	calls := 0
	err := Do(context.Background(), zerolog.Nop(), testConfig(), "op", func() error {
		calls++
		if calls < 2 {
			return MarkTransient(errors.New("flaky"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoPermanentErrorNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("bad request")
	err := Do(context.Background(), zerolog.Nop(), testConfig(), "op", func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, zerolog.Nop(), testConfig(), "op", func() error {
		return MarkTransient(errors.New("flaky"))
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.True(t, IsTransient(MarkTransient(errors.New("wrapped"))))
	assert.False(t, IsTransient(context.Canceled))
}
