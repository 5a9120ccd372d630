// Package ratelimiter throttles request processing with a token bucket.
// It wraps golang.org/x/time/rate so waiting respects context cancellation.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket: tokens accumulate at the sustained rate up to
// the burst capacity, and each request consumes one. Safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained with the given
// burst capacity. A zero rate disables limiting.
func New(requestsPerSecond, burst uint) *Limiter {
	if requestsPerSecond == 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst))}
}

// Allow consumes a token if one is available, without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or the context ends. This throttles
// callers instead of rejecting them.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Tokens returns the current bucket level, for monitoring.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
