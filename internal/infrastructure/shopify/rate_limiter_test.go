package shopify

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWait(t *testing.T) {
	ctx := context.Background()

	t.Run("paces consecutive calls to the same shop", func(t *testing.T) {
		limiter := NewRateLimiter(50*time.Millisecond, zerolog.Nop())

		start := time.Now()
		require.NoError(t, limiter.Wait(ctx, "one.myshopify.com"))
		require.NoError(t, limiter.Wait(ctx, "one.myshopify.com"))
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("different shops do not pace each other", func(t *testing.T) {
		limiter := NewRateLimiter(time.Second, zerolog.Nop())

		require.NoError(t, limiter.Wait(ctx, "one.myshopify.com"))
		start := time.Now()
		require.NoError(t, limiter.Wait(ctx, "two.myshopify.com"))
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		limiter := NewRateLimiter(time.Minute, zerolog.Nop())
		require.NoError(t, limiter.Wait(ctx, "one.myshopify.com"))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := limiter.Wait(cancelled, "one.myshopify.com")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
