package ai

import (
	"context"

	"golang.org/x/time/rate"

	"plutus/pkg/errors"
)

// RateLimiter gates outbound provider requests.
type RateLimiter interface {
	// Wait blocks until a request may proceed or the context is cancelled.
	Wait(ctx context.Context) error

	// Limit returns the current rate limit in requests per minute.
	Limit() float64
}

// TokenBucketLimiter adapts golang.org/x/time/rate to the provider limiter
// contract. Thread-safe.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
	name    string
}

// NewTokenBucketLimiter creates a limiter allowing reqPerMinute sustained
// requests with the given burst (defaults to 10% of the rate).
func NewTokenBucketLimiter(name string, reqPerMinute float64, burst int) *TokenBucketLimiter {
	if reqPerMinute <= 0 {
		reqPerMinute = 60
	}
	if burst <= 0 {
		burst = int(reqPerMinute / 10)
		if burst < 1 {
			burst = 1
		}
	}

	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(rate.Limit(reqPerMinute/60.0), burst),
		name:    name,
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(errors.ErrRateLimitExceeded, "%s: %v", l.name, err)
	}
	return nil
}

// Limit returns requests per minute.
func (l *TokenBucketLimiter) Limit() float64 {
	return float64(l.limiter.Limit()) * 60.0
}

// NopLimiter never blocks. Used in tests and when rate limiting is disabled.
type NopLimiter struct{}

func (NopLimiter) Wait(ctx context.Context) error { return nil }
func (NopLimiter) Limit() float64                 { return 0 }
