// Package ratelimit bounds how many requests a client key may make per window.
package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter decides whether a request under key may proceed and records it
type Limiter interface {
	CheckAndConsume(ctx context.Context, key string) (Decision, error)
}

// Decision is the outcome of a single CheckAndConsume call
type Decision struct {
	Allowed bool
	// RetryAfter is the time left in the current window when denied
	RetryAfter time.Duration
}

// RetryAfterMinutes rounds the remaining window up to whole minutes
func (d Decision) RetryAfterMinutes() int {
	if d.Allowed || d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Minutes()))
}

// RetryAfterSeconds is RetryAfterMinutes expressed in seconds
func (d Decision) RetryAfterSeconds() int {
	return d.RetryAfterMinutes() * 60
}

// Clock returns the current time
type Clock func() time.Time

type record struct {
	count       int
	windowStart time.Time
}

// MemoryLimiter is a fixed-window counter per key held in process memory.
// State is lost on restart and not shared between instances.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*record
	limit   int
	window  time.Duration
	now     Clock

	// calls since the last prune of expired records
	calls int
}

// pruneEvery bounds how many calls may pass between sweeps of expired keys
const pruneEvery = 1024

// NewMemoryLimiter creates an in-memory limiter allowing limit requests per window
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return NewMemoryLimiterWithClock(limit, window, time.Now)
}

// NewMemoryLimiterWithClock is NewMemoryLimiter with an injectable clock
func NewMemoryLimiterWithClock(limit int, window time.Duration, now Clock) *MemoryLimiter {
	return &MemoryLimiter{
		records: make(map[string]*record),
		limit:   limit,
		window:  window,
		now:     now,
	}
}

// CheckAndConsume never returns an error
func (l *MemoryLimiter) CheckAndConsume(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybePrune(now)

	rec, ok := l.records[key]
	if !ok || now.Sub(rec.windowStart) > l.window {
		l.records[key] = &record{count: 1, windowStart: now}
		return Decision{Allowed: true}, nil
	}

	if rec.count >= l.limit {
		return Decision{RetryAfter: rec.windowStart.Add(l.window).Sub(now)}, nil
	}

	rec.count++
	return Decision{Allowed: true}, nil
}

// Reset forgets the record for key
func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *MemoryLimiter) maybePrune(now time.Time) {
	l.calls++
	if l.calls < pruneEvery {
		return
	}
	l.calls = 0
	for key, rec := range l.records {
		if now.Sub(rec.windowStart) > l.window {
			delete(l.records, key)
		}
	}
}

// UnknownClient is the shared bucket for requests without a forwarded address
const UnknownClient = "unknown"

// ClientKey returns the first X-Forwarded-For entry, or UnknownClient
func ClientKey(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return UnknownClient
	}
	first, _, _ := strings.Cut(forwarded, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return UnknownClient
}
