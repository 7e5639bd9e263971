package azdo

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter bounds the outbound API call rate with a token bucket. Tokens
// refill continuously at requestsPerMinute/60 per second and the bucket is
// capped at requestsPerMinute. Safe for concurrent callers; waiters are
// admitted in call order.
//
// Construct one per run and pass it in explicitly; it is deliberately not a
// package-level singleton so tests can isolate instances.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter admitting requestsPerMinute calls
// per minute with a burst of the same size.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
	}
}

// Acquire blocks until a token is available and consumes it. It returns early
// with the context's error if the context is canceled while waiting.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
