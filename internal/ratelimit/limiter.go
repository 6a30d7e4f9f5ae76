// Package ratelimit enforces a per-client sliding window over incoming requests.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps per client key and refuses a request once
// the key has used up its allowance for the current window. Refused requests
// are not recorded, so a throttled client recovers as soon as old hits age out.
type Limiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	hits      map[string][]time.Time
	lastSweep time.Time

	now func() time.Time // swapped in tests
}

// New creates a limiter allowing max requests per key per window.
func New(window time.Duration, max int) *Limiter {
	return &Limiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it fits in the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if now.Sub(l.lastSweep) > l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// sweep drops keys whose every hit has aged out. Called with mu held.
func (l *Limiter) sweep(cutoff time.Time) {
	for key, stamps := range l.hits {
		live := false
		for _, t := range stamps {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.hits, key)
		}
	}
}
