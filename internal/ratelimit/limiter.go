// Package ratelimit implements a per-identity sliding window over submission
// timestamps. Windows are ephemeral: they live in memory only and start empty
// after a restart, which errs on the permissive side.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultWindow is the trailing period a window covers.
const DefaultWindow = time.Minute

// window holds one identity's recent submission timestamps.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
}

// Limiter tracks submission windows per identity. Different identities are
// fully independent; only calls for the same identity serialize.
type Limiter struct {
	mu      sync.RWMutex
	windows map[string]*window

	quota  int
	period time.Duration
}

// NewLimiter creates a limiter allowing quota submissions per identity within
// the trailing period.
func NewLimiter(quota int, period time.Duration) *Limiter {
	if period <= 0 {
		period = DefaultWindow
	}

	return &Limiter{
		windows: make(map[string]*window),
		quota:   quota,
		period:  period,
	}
}

// Allow records a submission at now for identity and reports whether the
// identity is within quota. The timestamp is recorded even when the answer is
// no, so hammering the limiter never ages the window out.
func (l *Limiter) Allow(identity string, now time.Time) bool {
	w := l.getOrCreate(identity)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-l.period)
	kept := w.stamps[:0]

	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	w.stamps = append(kept, now)

	return len(w.stamps) <= l.quota
}

// Count returns the number of submissions for identity within the trailing
// period ending at now, without recording anything.
func (l *Limiter) Count(identity string, now time.Time) int {
	l.mu.RLock()
	w, ok := l.windows[identity]
	l.mu.RUnlock()

	if !ok {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-l.period)
	count := 0

	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			count++
		}
	}

	return count
}

// Prune drops windows whose newest entry is older than the trailing period.
// Called by the maintenance worker so idle identities do not accumulate.
func (l *Limiter) Prune(now time.Time) int {
	cutoff := now.Add(-l.period)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0

	for identity, w := range l.windows {
		w.mu.Lock()
		stale := len(w.stamps) == 0 || !w.stamps[len(w.stamps)-1].After(cutoff)
		w.mu.Unlock()

		if stale {
			delete(l.windows, identity)
			removed++
		}
	}

	return removed
}

func (l *Limiter) getOrCreate(identity string) *window {
	l.mu.RLock()
	w, ok := l.windows[identity]
	l.mu.RUnlock()

	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok = l.windows[identity]; ok {
		return w
	}

	w = &window{}
	l.windows[identity] = w

	return w
}
