package webhook

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window rate limiter keyed by source. Each source
// has an independent counter that resets after the window. Expired windows
// are swept at most once per window so the map only holds active sources.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	buckets   map[string]*windowBucket
	nextSweep time.Time
	now       func() time.Time
}

type windowBucket struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowBucket),
		now:     time.Now,
	}
}

// Allow reports whether source is within its limit. A limit of zero or less
// allows everything. Safe for concurrent use.
func (r *rateLimiter) Allow(source string) bool {
	if r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	b, ok := r.buckets[source]
	if !ok || now.After(b.resetAt) {
		r.buckets[source] = &windowBucket{count: 1, resetAt: now.Add(r.window)}
		return true
	}
	if b.count >= r.limit {
		return false
	}
	b.count++
	return true
}

// sweep drops buckets whose window has ended. Callers hold r.mu.
func (r *rateLimiter) sweep(now time.Time) {
	if now.Before(r.nextSweep) {
		return
	}
	for source, b := range r.buckets {
		if now.After(b.resetAt) {
			delete(r.buckets, source)
		}
	}
	r.nextSweep = now.Add(r.window)
}

// size returns the number of tracked sources.
func (r *rateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}
