// Package ratelimit bounds outbound sends with an in-memory sliding
// window. The counter resets on process restart; the approval flow is the
// durable safety net, this is the throttle.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter. Record a send only after it
// has been confirmed, so failed attempts never consume the budget.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	now    func() time.Time
	sends  []time.Time
}

// New creates a Limiter allowing max sends per window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window, now: time.Now}
}

// NewWithClock creates a Limiter with an injected clock for tests.
func NewWithClock(max int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{max: max, window: window, now: now}
}

// Check reports whether a send is allowed right now. When denied, the
// second return is the whole seconds until the oldest send leaves the
// window, never less than 1.
func (l *Limiter) Check() (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	if len(l.sends) < l.max {
		return true, 0
	}

	wait := int(l.sends[0].Add(l.window).Sub(l.now()).Seconds()) + 1
	if wait < 1 {
		wait = 1
	}
	return false, wait
}

// RecordSend counts a confirmed send against the window.
func (l *Limiter) RecordSend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sends = append(l.sends, l.now())
}

// Max returns the window capacity.
func (l *Limiter) Max() int { return l.max }

// Count returns the number of sends inside the current window.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	return len(l.sends)
}

func (l *Limiter) prune() {
	cutoff := l.now().Add(-l.window)
	i := 0
	for i < len(l.sends) && l.sends[i].Before(cutoff) {
		i++
	}
	l.sends = l.sends[i:]
}
