package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the gallery
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	Publishes            *prometheus.CounterVec
	PublishAttempts      prometheus.Histogram
	RateLimitDenials     *prometheus.CounterVec
	EnhancementFallbacks prometheus.Counter

	// Upstream metrics
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Query bus metrics
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Mirror metrics
	MirrorUpserts *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a metrics collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publish outcomes",
		}, []string{"outcome"}),
		PublishAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_attempts",
			Help:      "Attempts needed per publish, including version conflict retries",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		RateLimitDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_denials_total",
			Help:      "Requests denied by a rate limiter",
		}, []string{"limiter"}),
		EnhancementFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enhancement_fallbacks_total",
			Help:      "Enhancement requests answered with the fixed fallback",
		}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Calls to remote services",
		}, []string{"service", "operation", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Remote call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries dispatched through the query bus",
		}, []string{"query", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		MirrorUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_upserts_total",
			Help:      "Mirror row upserts by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of catalog cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of catalog cache misses",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Publishes,
		c.PublishAttempts,
		c.RateLimitDenials,
		c.EnhancementFallbacks,
		c.UpstreamCalls,
		c.UpstreamDuration,
		c.Queries,
		c.QueryDuration,
		c.MirrorUpserts,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// ObserveUpstream records one remote call
func (c *Collector) ObserveUpstream(service, operation string, started time.Time, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.UpstreamCalls.WithLabelValues(service, operation, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(service, operation).Observe(time.Since(started).Seconds())
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveQuery records one query bus dispatch
func (c *Collector) ObserveQuery(queryType string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.Queries.WithLabelValues(queryType, outcome).Inc()
	c.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

// ObservePublish records the outcome of one publish and the attempts it took
func (c *Collector) ObservePublish(outcome string, attempts int) {
	if c == nil {
		return
	}
	c.Publishes.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		c.PublishAttempts.Observe(float64(attempts))
	}
}

// ObserveMirrorUpsert records one mirror write
func (c *Collector) ObserveMirrorUpsert(trigger string, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.MirrorUpserts.WithLabelValues(trigger, outcome).Inc()
}

// RateLimitDenied counts a request rejected by the named limiter
func (c *Collector) RateLimitDenied(limiter string) {
	if c == nil {
		return
	}
	c.RateLimitDenials.WithLabelValues(limiter).Inc()
}

// EnhancementFallback counts an enhancement answered with the fallback
func (c *Collector) EnhancementFallback() {
	if c == nil {
		return
	}
	c.EnhancementFallbacks.Inc()
}

// ObserveCache records a catalog cache lookup
func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
