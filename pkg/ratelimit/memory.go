package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type window struct {
	start time.Time
	count int
}

// MemoryStore is a process-local counting store. It is only correct for a
// single relay instance: counters are not shared across processes, so a
// horizontally scaled deployment must use the Redis store instead.
type MemoryStore struct {
	clock   clockwork.Clock
	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:   clock,
		windows: make(map[string]*window),
	}
}

func (s *MemoryStore) Admit(_ context.Context, perKey string, perLimit Limit, globalKey string, globalLimit Limit) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	if d, blocked := s.check(now, perKey, perLimit); blocked {
		return d, nil
	}
	if d, blocked := s.check(now, globalKey, globalLimit); blocked {
		return d, nil
	}

	s.increment(now, perKey, perLimit)
	s.increment(now, globalKey, globalLimit)
	return Decision{Allowed: true}, nil
}

// check reports whether the key's current window is already at capacity.
// Expired windows are discarded here, which also bounds the map size.
func (s *MemoryStore) check(now time.Time, key string, limit Limit) (Decision, bool) {
	w, ok := s.windows[key]
	if !ok {
		return Decision{}, false
	}
	reset := w.start.Add(limit.Window)
	if !now.Before(reset) {
		delete(s.windows, key)
		return Decision{}, false
	}
	if w.count >= limit.Count {
		return Decision{Allowed: false, RetryAfter: reset.Sub(now)}, true
	}
	return Decision{}, false
}

func (s *MemoryStore) increment(now time.Time, key string, limit Limit) {
	w, ok := s.windows[key]
	if !ok {
		s.windows[key] = &window{start: now, count: 1}
		return
	}
	if !now.Before(w.start.Add(limit.Window)) {
		w.start = now
		w.count = 1
		return
	}
	w.count++
}
