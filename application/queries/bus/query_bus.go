package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// ErrHandlerNotFound is returned by Ask for an unregistered query type
var ErrHandlerNotFound = errors.New("query handler not found")

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	handlers map[reflect.Type]QueryHandler
	mu       sync.RWMutex
}

// NewQueryBus creates a new query bus
func NewQueryBus() *QueryBus {
	return &QueryBus{
		handlers: make(map[reflect.Type]QueryHandler),
	}
}

// Register registers a handler for a query type. Wrappers are applied in
// order, so the last one runs outermost.
func (b *QueryBus) Register(queryType Query, handler QueryHandler, wrappers ...Wrapper) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}

	for _, w := range wrappers {
		handler = w.Wrap(handler)
	}
	b.handlers[t] = handler
	return nil
}

// Ask validates a query and returns its handler's result.
// Errors are returned unwrapped so callers can map them to responses.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, query)
	}

	return handler.Handle(ctx, query)
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Wrapper decorates a handler at registration
type Wrapper interface {
	Wrap(next QueryHandler) QueryHandler
}

// CacheKeyer lets a query choose its own cache key
type CacheKeyer interface {
	CacheKey() string
}

// CachingMiddleware adds caching to query handlers
type CachingMiddleware struct {
	cache Cache
	ttl   int // TTL in seconds
}

// NewCachingMiddleware creates a new caching middleware
func NewCachingMiddleware(cache Cache, ttl int) *CachingMiddleware {
	return &CachingMiddleware{
		cache: cache,
		ttl:   ttl,
	}
}

// Wrap wraps a query handler with caching
func (m *CachingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		cacheKey := m.generateCacheKey(query)

		if cached, found := m.cache.Get(ctx, cacheKey); found {
			return cached, nil
		}

		gc, generational := m.cache.(GenerationalCache)
		var generation uint64
		if generational {
			generation = gc.Generation()
		}

		result, err := next.Handle(ctx, query)
		if err != nil {
			return nil, err
		}

		// A result read before the last invalidation is not stored.
		if generational {
			gc.SetIfGeneration(ctx, cacheKey, result, m.ttl, generation)
		} else {
			_ = m.cache.Set(ctx, cacheKey, result, m.ttl)
		}

		return result, nil
	})
}

func (m *CachingMiddleware) generateCacheKey(query Query) string {
	if k, ok := query.(CacheKeyer); ok {
		return fmt.Sprintf("%T:%s", query, k.CacheKey())
	}
	return fmt.Sprintf("%T:%+v", query, query)
}

// Cache interface for caching
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
}

// GenerationalCache is a Cache that can refuse writes computed before its
// last invalidation
type GenerationalCache interface {
	Cache
	Generation() uint64
	SetIfGeneration(ctx context.Context, key string, value interface{}, ttl int, generation uint64) bool
}

// MetricsMiddleware adds metrics to query handlers
type MetricsMiddleware struct {
	metrics Metrics
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(metrics Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: metrics,
	}
}

// Wrap wraps a query handler with metrics
func (m *MetricsMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		queryType := reflect.TypeOf(query).Name()
		start := time.Now()

		result, err := next.Handle(ctx, query)
		m.metrics.ObserveQuery(queryType, time.Since(start), err)

		return result, err
	})
}

// Metrics records query outcomes
type Metrics interface {
	ObserveQuery(queryType string, duration time.Duration, err error)
}
