package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/ratelimit"

	"go.uber.org/zap"
)

// DenialMetrics counts rejected requests per limiter
type DenialMetrics interface {
	RateLimitDenied(limiter string)
}

// RateLimitConfig describes one limiter applied to a route
type RateLimitConfig struct {
	// Name labels metrics and logs
	Name string
	// Message renders the 429 error text from the minutes left in the window
	Message func(retryAfterMinutes int) string
}

// ScrapeLimitMessage is the denial text for the scrape endpoint
func ScrapeLimitMessage(minutes int) string {
	return fmt.Sprintf("Too many scrape requests. Please try again in %d minutes.", minutes)
}

// SubmissionLimitMessage is the denial text for the validate endpoint
func SubmissionLimitMessage(minutes int) string {
	return fmt.Sprintf("Too many submissions. Please try again in %d minutes.", minutes)
}

// RateLimit consumes one unit of the client's budget per request.
// Limiter errors fail open.
func RateLimit(limiter ratelimit.Limiter, cfg RateLimitConfig, errHandler *apperrors.ErrorHandler, metrics DenialMetrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.ClientKey(r)

			decision, err := limiter.CheckAndConsume(r.Context(), key)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request",
					zap.String("limiter", cfg.Name),
					zap.String("client", key),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if metrics != nil {
				metrics.RateLimitDenied(cfg.Name)
			}
			minutes := decision.RetryAfterMinutes()
			appErr := apperrors.NewRateLimitError(minutes)
			if cfg.Message != nil {
				appErr.Message = cfg.Message(minutes)
			}
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
			errHandler.Handle(w, r, appErr)
		})
	}
}
