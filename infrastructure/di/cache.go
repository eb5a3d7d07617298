package di

import (
	"context"
	"sync"
	"time"
)

// CacheObserver records cache hits and misses
type CacheObserver interface {
	ObserveCache(hit bool)
}

// InMemoryCache is the process-local catalog cache
type InMemoryCache struct {
	mu       sync.RWMutex
	items    map[string]cacheItem
	observer CacheObserver
	// generation advances on every Clear
	generation uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewInMemoryCache creates a cache that sweeps expired entries every
// cleanupInterval until Stop is called. observer may be nil.
func NewInMemoryCache(cleanupInterval time.Duration, observer CacheObserver) *InMemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	cache := &InMemoryCache{
		items:    make(map[string]cacheItem),
		observer: observer,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go cache.cleanupExpired(cleanupInterval)

	return cache
}

// Get retrieves a value from cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	hit := exists && time.Now().Before(item.expiresAt)
	if c.observer != nil {
		c.observer.ObserveCache(hit)
	}
	if !hit {
		return nil, false
	}
	return item.value, true
}

// Set stores a value in cache with TTL in seconds
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store(key, value, ttl)
	return nil
}

// Generation returns a token that changes whenever the cache is cleared
func (c *InMemoryCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// SetIfGeneration stores value only if no Clear happened since generation
// was read. It reports whether the value was stored.
func (c *InMemoryCache) SetIfGeneration(ctx context.Context, key string, value interface{}, ttl int, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}
	c.store(key, value, ttl)
	return true
}

func (c *InMemoryCache) store(key string, value interface{}, ttl int) {
	c.items[key] = cacheItem{
		value:     value,
		expiresAt: time.Now().Add(time.Duration(ttl) * time.Second),
	}
}

// Delete removes a value from cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all values from cache
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	c.generation++
	return nil
}

// Len reports the number of stored entries, expired or not
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the sweeper goroutine. It is safe to call more than once.
func (c *InMemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *InMemoryCache) cleanupExpired(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
