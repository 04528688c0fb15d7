package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// resetThrottle limits forgot-password requests per email address.
type resetThrottle struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	window    time.Duration
	now       func() time.Time
	limiters  map[string]*throttleEntry
	lastSweep time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newResetThrottle allows requests per window for each key. A non-positive
// requests value disables throttling.
func newResetThrottle(requests int, window time.Duration, now func() time.Time) *resetThrottle {
	if requests <= 0 || window <= 0 {
		return nil
	}
	now = normalizeClock(now)
	return &resetThrottle{
		limit:     rate.Every(window / time.Duration(requests)),
		burst:     requests,
		window:    window,
		now:       now,
		limiters:  make(map[string]*throttleEntry),
		lastSweep: now(),
	}
}

func (t *resetThrottle) Allow(key string) bool {
	if t == nil {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.maybeSweep(now)

	entry, ok := t.limiters[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// maybeSweep drops keys idle for a whole window, at most once per window.
// An idle key has refilled its bucket, so forgetting it changes no decision.
func (t *resetThrottle) maybeSweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.window {
		return
	}
	t.lastSweep = now

	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) >= t.window {
			delete(t.limiters, key)
		}
	}
}

func (t *resetThrottle) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
