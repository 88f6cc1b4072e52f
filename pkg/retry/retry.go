package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"plutus/pkg/errors"
)

// Policy describes a bounded retry schedule with exponential backoff and jitter.
// A zero Policy is usable and falls back to the defaults below.
type Policy struct {
	MaxAttempts int           // Total attempts including the first (default 3)
	BaseDelay   time.Duration // Delay before the second attempt (default 500ms)
	MaxDelay    time.Duration // Upper bound for a single delay (default 10s)
	Multiplier  float64       // Backoff growth factor (default 2.0)
	Jitter      float64       // Random fraction of the delay added, 0..1 (default 0.2)
}

// DefaultPolicy matches the transport-boundary retry behaviour: three attempts,
// half-second base delay, capped exponential growth.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2.0
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = 0.2
	}
	return p
}

// Delay returns the backoff delay preceding the given attempt (attempt 1 has no delay).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt <= 1 {
		return 0
	}

	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-2))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or the context
// is cancelled. The last error is returned when all attempts fail. A non-nil
// retryable predicate short-circuits retries for permanent errors.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if delay := p.Delay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry cancelled")
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}

	return errors.Wrapf(lastErr, "all %d attempts failed", p.MaxAttempts)
}
