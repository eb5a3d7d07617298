package breaker

import (
	"errors"
	"time"

	apperrors "gallery-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds configuration for an upstream circuit breaker
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests calls have been counted.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns the default configuration for name
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// New creates a circuit breaker. Only upstream 5xx and transport
// failures count against it; client errors such as an unknown scenario do not.
func New(cfg Config, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			appErr := apperrors.GetAppError(err)
			if appErr == nil {
				return false
			}
			status, _ := appErr.Details["upstream_status"].(int)
			return status >= 400 && status < 500
		},
	})
}

// Error maps breaker rejections to an unavailable error
func Error(service string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewUnavailableError(service).WithCause(err)
	}
	return err
}
