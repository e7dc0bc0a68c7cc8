// Package ratelimit bounds the request rate for a key within a trailing
// (sliding) time window, entirely in process memory.
//
// The limiter is intentionally process-local: in a horizontally scaled
// deployment each instance counts independently, which under-counts against
// the shared quota rather than over-counting — acceptable for soft abuse
// deterrence. The store is injected behind an interface so a shared cache
// can replace the in-memory map without touching call sites.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of a Check call.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAfter is how long until the oldest retained request leaves the
	// window; zero when the request was allowed.
	ResetAfter time.Duration
}

// ResetSeconds returns ResetAfter rounded up to whole seconds, for
// X-RateLimit-Reset style headers.
func (r Result) ResetSeconds() int {
	if r.ResetAfter <= 0 {
		return 0
	}
	return int((r.ResetAfter + time.Second - 1) / time.Second)
}

// Store records request timestamps per key. Implementations must make Take
// atomic: prune-then-append races would otherwise admit bursts past the
// limit.
type Store interface {
	// Take discards timestamps for key at or before cutoff, then appends
	// now if fewer than limit remain. It returns the retained timestamps
	// (including the appended one) and whether the append happened.
	Take(key string, cutoff, now time.Time, limit int) (stamps []time.Time, allowed bool)

	// Sweep removes keys whose newest timestamp is at or before cutoff.
	// Affects memory footprint only, never correctness.
	Sweep(cutoff time.Time)
}

// Limiter checks keys against a sliding window over an injected Store.
type Limiter struct {
	store Store
	now   func() time.Time // swapped in tests
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Check records a request for key if the trailing window holds fewer than
// limit requests, and reports the outcome.
//
// Calling Check exactly limit times within the window allows all of them;
// the limit+1-th is denied with a positive ResetAfter. Once the oldest
// request ages past the window a subsequent call is allowed again.
func (l *Limiter) Check(key string, limit int, window time.Duration) Result {
	now := l.now()
	stamps, allowed := l.store.Take(key, now.Add(-window), now, limit)

	if allowed {
		return Result{
			Allowed:   true,
			Remaining: limit - len(stamps),
		}
	}

	res := Result{Allowed: false, Remaining: 0}
	if len(stamps) > 0 {
		res.ResetAfter = stamps[0].Add(window).Sub(now)
	}
	return res
}

// MemoryStore is the default mutex-guarded in-memory Store.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string][]time.Time
	done chan struct{}
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string][]time.Time),
		done: make(chan struct{}),
	}
}

// Take implements Store.
func (s *MemoryStore) Take(key string, cutoff, now time.Time, limit int) ([]time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.keys[key]

	// Timestamps are appended in order; find the first one still inside
	// the window and drop everything before it.
	keep := 0
	for keep < len(stamps) && !stamps[keep].After(cutoff) {
		keep++
	}
	stamps = append(stamps[:0:0], stamps[keep:]...)

	allowed := len(stamps) < limit
	if allowed {
		stamps = append(stamps, now)
	}
	s.keys[key] = stamps
	return stamps, allowed
}

// Sweep implements Store: keys with no timestamp newer than cutoff are
// removed to bound the map's size.
func (s *MemoryStore) Sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, stamps := range s.keys {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(s.keys, key)
		}
	}
}

// StartSweep runs Sweep every interval, discarding keys idle for longer
// than horizon. Safe to skip entirely — it only affects memory.
func (s *MemoryStore) StartSweep(interval, horizon time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(time.Now().Add(-horizon))
			case <-s.done:
				return
			}
		}
	}()
}

// Close stops the background sweep, if one was started.
func (s *MemoryStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// size reports the number of tracked keys; used by tests.
func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
