package shopify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Shopify's REST admin API refills the call bucket at 2 requests per
// second per store. The limiter paces outbound calls per shop domain so
// a bulk fetch for one store cannot starve webhooks for another.
type RateLimiter struct {
	mu          sync.Mutex
	lastCall    map[string]time.Time
	minInterval time.Duration
	logger      zerolog.Logger
}

// NewRateLimiter creates a per-store rate limiter with the given
// minimum interval between calls to the same shop
func NewRateLimiter(minInterval time.Duration, logger zerolog.Logger) *RateLimiter {
	if minInterval <= 0 {
		minInterval = 500 * time.Millisecond
	}
	return &RateLimiter{
		lastCall:    make(map[string]time.Time),
		minInterval: minInterval,
		logger:      logger,
	}
}

// Wait blocks until a call to the given shop domain is allowed, or the
// context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, shopDomain string) error {
	r.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if last, ok := r.lastCall[shopDomain]; ok {
		if elapsed := now.Sub(last); elapsed < r.minInterval {
			wait = r.minInterval - elapsed
		}
	}
	r.lastCall[shopDomain] = now.Add(wait)
	r.mu.Unlock()

	if wait == 0 {
		return nil
	}

	r.logger.Debug().
		Str("shop", shopDomain).
		Dur("wait", wait).
		Msg("Rate limiter pacing outbound call")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
