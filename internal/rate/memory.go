package rate

import (
	"sync"
	"time"
)

// sweepEvery bounds how often stale windows are collected.
const sweepEvery = time.Minute

type window struct {
	openedAt time.Time
	hits     int
}

// Limiter is a fixed-window in-memory counter keyed by route+client. It
// guards the login, register and redeem routes.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	sweepAt time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		windows: map[string]*window{},
		sweepAt: time.Now().UTC().Add(sweepEvery),
	}
}

// Allow counts one hit against the key's current window and reports whether
// it stays within limit. A window older than its span restarts fresh.
func (l *Limiter) Allow(key string, limit int, span time.Duration) bool {
	now := time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeSweep(now, span)

	w := l.windows[key]
	if w == nil || now.Sub(w.openedAt) >= span {
		l.windows[key] = &window{openedAt: now, hits: 1}
		return true
	}
	if w.hits >= limit {
		return false
	}
	w.hits++
	return true
}

// maybeSweep drops windows idle for several spans. Caller holds the lock.
func (l *Limiter) maybeSweep(now time.Time, span time.Duration) {
	if now.Before(l.sweepAt) {
		return
	}
	for k, w := range l.windows {
		if now.Sub(w.openedAt) > 3*span {
			delete(l.windows, k)
		}
	}
	l.sweepAt = now.Add(sweepEvery)
}
