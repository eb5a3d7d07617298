package rest

import (
	"context"
	"net/http"
	"time"

	"gallery-backend/application/commands/bus"
	querybus "gallery-backend/application/queries/bus"
	"gallery-backend/interfaces/http/rest/handlers"
	"gallery-backend/interfaces/http/rest/middleware"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/observability"
	"gallery-backend/pkg/ratelimit"
	"gallery-backend/pkg/sanitize"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// readinessTimeout bounds the readiness probe
const readinessTimeout = 5 * time.Second

// Dependencies are everything the router hands to its handlers
type Dependencies struct {
	CommandBus     *bus.CommandBus
	QueryBus       *querybus.QueryBus
	Sanitizer      *sanitize.Sanitizer
	ErrorHandler   *apperrors.ErrorHandler
	ScrapeLimiter  ratelimit.Limiter
	SubmitLimiter  ratelimit.Limiter
	TokenValidator middleware.TokenValidator
	Images         handlers.ImageFetcher
	// Ready reports whether the document store is reachable
	Ready   func(ctx context.Context) error
	Metrics *observability.Collector
	Logger  *zap.Logger
}

// Options toggle optional router features
type Options struct {
	EnableCORS    bool
	CORSOrigins   []string
	EnableMetrics bool
}

// Router creates and configures the HTTP router
type Router struct {
	deps Dependencies
	opts Options
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies, opts Options) *Router {
	return &Router{deps: deps, opts: opts}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	logger := rt.deps.Logger

	// A nil collector must not become a non-nil interface
	var httpMetrics middleware.HTTPMetrics
	var denials middleware.DenialMetrics
	if rt.deps.Metrics != nil {
		httpMetrics = rt.deps.Metrics
		denials = rt.deps.Metrics
	}

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(logger, httpMetrics))
	router.Use(rt.deps.ErrorHandler.Middleware)

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.EnableMetrics && rt.deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	scenarioHandler := handlers.NewScenarioHandler(rt.deps.QueryBus, rt.deps.Sanitizer, rt.deps.ErrorHandler, logger)
	publishHandler := handlers.NewPublishHandler(rt.deps.CommandBus, rt.deps.Sanitizer, rt.deps.ErrorHandler, logger)
	catalogHandler := handlers.NewCatalogHandler(rt.deps.QueryBus, rt.deps.ErrorHandler, logger)
	imageHandler := handlers.NewImageHandler(rt.deps.Images, rt.deps.ErrorHandler, logger)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identify(rt.deps.TokenValidator, rt.deps.ErrorHandler, logger))

		r.With(middleware.RateLimit(rt.deps.ScrapeLimiter, middleware.RateLimitConfig{
			Name:    "scrape",
			Message: middleware.ScrapeLimitMessage,
		}, rt.deps.ErrorHandler, denials, logger)).Post("/scrape", scenarioHandler.Scrape)

		r.With(middleware.RateLimit(rt.deps.SubmitLimiter, middleware.RateLimitConfig{
			Name:    "validate",
			Message: middleware.SubmissionLimitMessage,
		}, rt.deps.ErrorHandler, denials, logger)).Post("/validate", scenarioHandler.Validate)

		r.Post("/enhance-metadata", scenarioHandler.EnhanceMetadata)
		r.Post("/publish", publishHandler.Publish)

		// Catalog
		r.Get("/templates", catalogHandler.ListTemplates)
		r.Get("/templates/{slug}", catalogHandler.GetTemplate)
		r.Get("/categories", catalogHandler.ListCategories)
		r.With(middleware.RequireUser(rt.deps.ErrorHandler)).Get("/profile/templates", catalogHandler.ListUserTemplates)

		r.Get("/proxy-image", imageHandler.ProxyImage)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.deps.ErrorHandler.Handle(w, r, apperrors.NewNotFoundError("Route"))
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports ready once the document store answers
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
		defer cancel()
		if err := rt.deps.Ready(ctx); err != nil {
			rt.deps.Logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
