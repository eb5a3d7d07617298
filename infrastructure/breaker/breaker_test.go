package breaker

import (
	"errors"
	"testing"
	"time"

	apperrors "gallery-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBreaker(t *testing.T) {
	cfg := Config{Name: "test", MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 2}

	t.Run("Should open after repeated upstream failures", func(t *testing.T) {
		cb := New(cfg, zap.NewNop())
		failing := func() (interface{}, error) {
			return nil, apperrors.NewUpstreamError("svc", 502, nil)
		}
		_, _ = cb.Execute(failing)
		_, _ = cb.Execute(failing)

		_, err := cb.Execute(failing)
		err = Error("svc", err)
		assert.Equal(t, 503, apperrors.GetAppError(err).HTTPStatus)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	})

	t.Run("Should not count upstream client errors", func(t *testing.T) {
		cb := New(cfg, zap.NewNop())
		notFound := func() (interface{}, error) {
			return nil, apperrors.NewUpstreamError("svc", 404, nil)
		}
		for i := 0; i < 5; i++ {
			_, err := cb.Execute(notFound)
			assert.False(t, apperrors.IsType(Error("svc", err), apperrors.ErrorTypeUnavailable))
		}
	})

	t.Run("Should pass through other errors", func(t *testing.T) {
		plain := errors.New("plain")
		assert.Equal(t, plain, Error("svc", plain))
	})
}
