package ratelimit

import (
	"context"
	"time"
)

const (
	perSourceKeyPrefix = "ratelimit:ip:"
	globalKey          = "ratelimit:global"
)

// Limiter binds the two configured limits to the counting store and owns the
// key naming scheme.
type Limiter struct {
	store     Store
	perSource Limit
	global    Limit
}

func NewLimiter(store Store, perSource, global Limit) *Limiter {
	return &Limiter{store: store, perSource: perSource, global: global}
}

// Admit reports whether a request from sourceAddr may proceed. Admission
// consumes one unit of both the per-source and the global window; a denial
// consumes nothing.
func (l *Limiter) Admit(ctx context.Context, sourceAddr string) (Decision, error) {
	return l.store.Admit(ctx, perSourceKeyPrefix+sourceAddr, l.perSource, globalKey, l.global)
}

// RetryAfterSeconds renders a decision's retry hint for the wire: whole
// seconds, rounded up so the client never retries early, minimum 1.
func RetryAfterSeconds(d Decision) int {
	if d.Allowed {
		return 0
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
