// Package ratelimit implements the relay's admission control: two fixed-window
// counters (per-source and global) backed by a shared counting store. A
// request is admitted only when both windows have capacity, and both are
// incremented together; a denial never leaves a partial increment behind.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of an admission attempt. RetryAfter is only
// meaningful when Allowed is false and reports the time remaining until the
// blocking window resets.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Store is the counting backend. Admit atomically checks both keys against
// their limits and increments both if and only if both have capacity. The
// first increment of a window sets its expiry to the window duration.
type Store interface {
	Admit(ctx context.Context, perKey string, perLimit Limit, globalKey string, globalLimit Limit) (Decision, error)
}
