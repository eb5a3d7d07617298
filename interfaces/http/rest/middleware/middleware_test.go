package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gallery-backend/pkg/auth"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type brokenLimiter struct{}

func (brokenLimiter) CheckAndConsume(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("table unavailable")
}

type deniedLimiter struct{}

func (deniedLimiter) CheckAndConsume(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, RetryAfter: 90 * time.Second}, nil
}

type countingDenials struct{ names []string }

func (c *countingDenials) RateLimitDenied(name string) { c.names = append(c.names, name) }

type expiringValidator struct{}

func (expiringValidator) ValidateToken(raw string) (*auth.Claims, error) {
	if raw == "expired" {
		return nil, auth.ErrExpiredToken
	}
	c := &auth.Claims{Email: "dev@example.com"}
	c.Subject = "user-7"
	return c, nil
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func TestRateLimit(t *testing.T) {
	errHandler := apperrors.NewErrorHandler(zap.NewNop(), false)

	t.Run("Should allow requests when the limiter fails", func(t *testing.T) {
		h := RateLimit(brokenLimiter{}, RateLimitConfig{Name: "scrape"}, errHandler, nil, zap.NewNop())(ok())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/scrape", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Should round the retry window up to whole minutes", func(t *testing.T) {
		denials := &countingDenials{}
		h := RateLimit(deniedLimiter{}, RateLimitConfig{Name: "validate", Message: SubmissionLimitMessage}, errHandler, denials, zap.NewNop())(ok())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/validate", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "120", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "Please try again in 2 minutes.")
		assert.Equal(t, []string{"validate"}, denials.names)
	})
}

func TestIdentify(t *testing.T) {
	errHandler := apperrors.NewErrorHandler(zap.NewNop(), false)

	t.Run("Should pass anonymous requests through", func(t *testing.T) {
		var seen bool
		h := Identify(expiringValidator{}, errHandler, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, seen = common.GetUserID(r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		assert.False(t, seen)
	})

	t.Run("Should attach the token subject", func(t *testing.T) {
		var userID, email string
		h := Identify(expiringValidator{}, errHandler, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ = common.GetUserID(r.Context())
			email, _ = common.GetUserEmail(r.Context())
		}))
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer fresh")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "user-7", userID)
		assert.Equal(t, "dev@example.com", email)
	})

	t.Run("Should reject expired tokens and malformed headers", func(t *testing.T) {
		h := Identify(expiringValidator{}, errHandler, zap.NewNop())(ok())
		for _, header := range []string{"Bearer expired", "Basic abc", "Bearer "} {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		}
	})

	t.Run("Should ignore tokens without a validator", func(t *testing.T) {
		h := Identify(nil, errHandler, zap.NewNop())(ok())
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer anything")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("Should keep a caller supplied id", func(t *testing.T) {
		var inCtx string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inCtx, _ = common.GetRequestID(r.Context())
		}))
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", inCtx)
		assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	})
}
