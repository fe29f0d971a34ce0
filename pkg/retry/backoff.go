// Package retry provides exponential backoff for startup dependencies such as
// the shared rate-limit store. It is deliberately not used on the request
// path: the relay never retries backend launches, and the agent's retry
// mechanism is its next scheduled cycle.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config bounds the retry loop. MaxRetries of -1 retries until the context
// ends.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         bool
}

// Operation returns nil on success, or an error to trigger another attempt.
type Operation func(ctx context.Context) error

// WithExponentialBackoff runs op until it succeeds, retries are exhausted or
// the context is done.
func WithExponentialBackoff(ctx context.Context, cfg Config, op Operation) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if cfg.MaxRetries >= 0 && attempt > cfg.MaxRetries {
			return fmt.Errorf("operation failed after %d attempts: %w", attempt, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(backoffFor(attempt, cfg)):
		}
	}
}

// backoffFor grows the wait exponentially from InitialBackoff, capped at
// MaxBackoff, with optional ±25% jitter so restarting fleets do not reconnect
// in lockstep.
func backoffFor(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}

	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}

	if cfg.Jitter {
		spread := d * 0.25
		d += rand.Float64()*2*spread - spread
		if d > float64(cfg.MaxBackoff) {
			d = float64(cfg.MaxBackoff)
		}
		if d < 0 {
			d = 0
		}
	}

	return time.Duration(d)
}
