// Package ratelimit provides an in-process fixed-window request limiter used
// to gate outbound exchange requests and, optionally, inbound API requests.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type window struct {
	start time.Time
	count int
}

// Limiter implements domain.RateLimiter with a per-key fixed window kept in
// memory. The window rolls over based on elapsed wall-clock time since the
// window start, not on a scheduler tick. Allow never blocks; a denied request
// does not consume a slot.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether a request under key is permitted given the limit and
// window duration, counting it if so. The check-then-increment sequence is
// atomic under the limiter's lock.
func (l *Limiter) Allow(_ context.Context, key string, limit int, windowDur time.Duration) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= windowDur {
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.count >= limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Remaining returns the number of slots left for key in its current window.
// A key with no window (or an expired one) has the full limit available.
func (l *Limiter) Remaining(key string, limit int, windowDur time.Duration) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= windowDur {
		return limit
	}
	if w.count >= limit {
		return 0
	}
	return limit - w.count
}

// Compile-time interface check.
var _ domain.RateLimiter = (*Limiter)(nil)
