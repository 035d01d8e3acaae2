// Package ratelimit implements a sliding-window request limiter backed by an
// in-memory timestamp store.
package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps per-key request timestamps in process memory.
// Timestamps of a key are kept in ascending order.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	maxKeys int
}

// NewMemoryStore creates a store tracking at most maxKeys keys. When full, the
// key with the oldest latest request is evicted. maxKeys <= 0 means unbounded.
func NewMemoryStore(maxKeys int) *MemoryStore {
	return &MemoryStore{entries: make(map[string][]time.Time), maxKeys: maxKeys}
}

// CheckAndAdd drops key's timestamps at or before cutoff and records now when
// fewer than limit remain. It reports whether now was recorded, the count
// inside the window afterwards, and the oldest timestamp still in the window.
//
// A now earlier than the key's latest timestamp (clock skew) is replaced by
// that timestamp so the order holds.
func (s *MemoryStore) CheckAndAdd(key string, now, cutoff time.Time, limit int) (bool, int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	times, tracked := s.entries[key]
	times = prune(times, cutoff)
	if tracked {
		s.entries[key] = times
	}
	if len(times) > 0 && now.Before(times[len(times)-1]) {
		now = times[len(times)-1]
	}

	if len(times) >= limit {
		oldest := now
		if len(times) > 0 {
			oldest = times[0]
		}
		return false, len(times), oldest
	}

	if !tracked && s.maxKeys > 0 && len(s.entries) >= s.maxKeys {
		s.evictOldest()
	}
	times = append(times, now)
	s.entries[key] = times
	return true, len(times), times[0]
}

// Cleanup prunes every key to the window ending at cutoff and forgets keys
// left empty. It returns the number of keys removed.
func (s *MemoryStore) Cleanup(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, times := range s.entries {
		times = prune(times, cutoff)
		if len(times) == 0 {
			delete(s.entries, key)
			removed++
			continue
		}
		s.entries[key] = times
	}
	return removed
}

// KeyCount returns the number of tracked keys.
func (s *MemoryStore) KeyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunCleanup calls Cleanup every interval, keeping maxAge of history, until
// ctx is done.
func (s *MemoryStore) RunCleanup(ctx context.Context, interval, maxAge time.Duration, clock Clock) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.Cleanup(clock.Now().Add(-maxAge))
			evictionsTotal.WithLabelValues("expired").Add(float64(removed))
			activeKeys.Set(float64(s.KeyCount()))
		}
	}
}

// evictOldest removes the key whose latest request is the oldest.
// The caller holds s.mu.
func (s *MemoryStore) evictOldest() {
	var (
		victim string
		oldest time.Time
	)
	for key, times := range s.entries {
		var last time.Time
		if len(times) > 0 {
			last = times[len(times)-1]
		}
		if victim == "" || last.Before(oldest) {
			victim, oldest = key, last
		}
	}
	if victim != "" {
		delete(s.entries, victim)
		evictionsTotal.WithLabelValues("capacity").Inc()
	}
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(times), func(i int) bool { return times[i].After(cutoff) })
	if i == 0 {
		return times
	}
	return append(times[:0:0], times[i:]...)
}
