package ratelimit

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiterWithClock(5, time.Hour, clock.Now)

	for i := 0; i < 5; i++ {
		d, err := limiter.CheckAndConsume(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d", i+1)
		clock.Advance(time.Minute)
	}

	denied, err := limiter.CheckAndConsume(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Positive(t, denied.RetryAfterSeconds())
	// 55 minutes remain in the window
	assert.Equal(t, 55*time.Minute, denied.RetryAfter)
	assert.Equal(t, 3300, denied.RetryAfterSeconds())

	clock.Advance(time.Hour)
	reset, err := limiter.CheckAndConsume(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, reset.Allowed)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(1, time.Hour)

	a, _ := limiter.CheckAndConsume(ctx, "a")
	b, _ := limiter.CheckAndConsume(ctx, "b")
	again, _ := limiter.CheckAndConsume(ctx, "a")

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
	assert.False(t, again.Allowed)

	limiter.Reset("a")
	afterReset, _ := limiter.CheckAndConsume(ctx, "a")
	assert.True(t, afterReset.Allowed)
}

func TestMemoryLimiterConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(50, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := limiter.CheckAndConsume(ctx, "shared")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestMemoryLimiterPrunesExpiredKeys(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	limiter := NewMemoryLimiterWithClock(1, time.Minute, clock.Now)

	for i := 0; i < pruneEvery-1; i++ {
		_, _ = limiter.CheckAndConsume(ctx, time.Duration(i).String())
	}
	clock.Advance(2 * time.Minute)
	_, _ = limiter.CheckAndConsume(ctx, "fresh")

	assert.Equal(t, 1, limiter.Len())
}

func TestRetryAfterRounding(t *testing.T) {
	assert.Equal(t, 60, Decision{RetryAfter: time.Second}.RetryAfterSeconds())
	assert.Equal(t, 120, Decision{RetryAfter: 61 * time.Second}.RetryAfterSeconds())
	assert.Equal(t, 0, Decision{Allowed: true, RetryAfter: time.Hour}.RetryAfterSeconds())
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"single address", "198.51.100.4", "198.51.100.4"},
		{"first of chain", " 198.51.100.4 , 10.0.0.1", "198.51.100.4"},
		{"missing header", "", UnknownClient},
		{"blank first entry", " ,10.0.0.1", UnknownClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/scrape", nil)
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ClientKey(r))
		})
	}
}
