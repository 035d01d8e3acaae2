package ratelimit

import (
	"math"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest request in the window expires.
	ResetAt time.Time
	// RetryAfter is set on denials.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1.
func (d Decision) RetryAfterSeconds() int64 {
	return max(1, int64(math.Ceil(d.RetryAfter.Seconds())))
}

// Limiter allows at most Limit requests per key in any Window.
type Limiter struct {
	name   string
	limit  int
	window time.Duration
	store  *MemoryStore
	clock  Clock
}

// NewLimiter creates a limiter. Limiters sharing a store are kept apart by name.
func NewLimiter(name string, limit int, window time.Duration, store *MemoryStore, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Limiter{name: name, limit: limit, window: window, store: store, clock: clock}
}

// Name returns the limiter name.
func (l *Limiter) Name() string { return l.name }

// Allow records a request for key when the window has room.
func (l *Limiter) Allow(key string) Decision {
	now := l.clock.Now()
	allowed, count, oldest := l.store.CheckAndAdd(l.name+":"+key, now, now.Add(-l.window), l.limit)

	d := Decision{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: max(0, l.limit-count),
		ResetAt:   oldest.Add(l.window),
	}
	if !allowed {
		d.RetryAfter = max(0, d.ResetAt.Sub(now))
		decisionsTotal.WithLabelValues(l.name, "denied").Inc()
	} else {
		decisionsTotal.WithLabelValues(l.name, "allowed").Inc()
	}
	return d
}
