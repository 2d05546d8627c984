// Package ratelimit implements a fixed-window request limiter keyed by an
// arbitrary string, such as a user id or a client IP.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows up to limit requests per key per window.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	lastPrune time.Time
}

type entry struct {
	windowStart time.Time
	count       int
}

// New creates a Limiter.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// NewWithClock creates a Limiter with a custom clock for tests.
func NewWithClock(limit int, window time.Duration, now func() time.Time) *Limiter {
	l := New(limit, window)
	l.now = now
	return l
}

// Allow reports whether a request for key fits in the current window and
// counts it if so. At most once per window it also drops expired entries,
// keeping the map bounded when keys come and go.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= l.window {
		l.pruneLocked(now)
	}

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[key] = &entry{windowStart: now, count: 1}
		return true
	}

	if e.count >= l.limit {
		return false
	}
	e.count++
	return true
}

// Retry reports how long the key must wait before the window resets.
// Returns zero when the key is not currently limited.
func (l *Limiter) Retry(key string) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.count < l.limit {
		return 0
	}
	remaining := l.window - now.Sub(e.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Prune drops windows that ended before now. Allow runs it lazily, so
// callers only need it to release memory on an otherwise idle limiter.
func (l *Limiter) Prune() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
}

func (l *Limiter) pruneLocked(now time.Time) {
	for key, e := range l.entries {
		if now.Sub(e.windowStart) >= l.window {
			delete(l.entries, key)
		}
	}
	l.lastPrune = now
}
