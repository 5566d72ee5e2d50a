// Package ratelimiter wraps golang.org/x/time/rate with the small
// surface packrat needs for connection admission control.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter applies token-bucket rate limiting to connection
// admission: tokens accrue at a sustained per-second rate, each accepted
// connection consumes one, and the burst capacity absorbs short spikes.
//
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing perSecond sustained admissions with
// the given burst capacity. perSecond of 0 disables limiting.
func New(perSecond, burst uint) *RateLimiter {
	if perSecond == 0 {
		// Effectively unlimited; avoids rate.Inf edge cases.
		perSecond = 1_000_000_000
		burst = perSecond
	}
	if burst == 0 {
		burst = perSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst)),
	}
}

// Allow consumes a token if one is available and reports whether the
// admission may proceed. It never blocks.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
