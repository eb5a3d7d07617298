package middleware

import (
	"errors"
	"net/http"
	"strings"

	"gallery-backend/pkg/auth"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"

	"go.uber.org/zap"
)

// TokenValidator verifies provider-issued access tokens
type TokenValidator interface {
	ValidateToken(raw string) (*auth.Claims, error)
}

// Identify attaches the caller's identity when a bearer token is present.
// Anonymous requests pass through untouched; a presented token that fails
// validation is rejected. With a nil validator tokens are ignored.
func Identify(validator TokenValidator, errHandler *apperrors.ErrorHandler, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				errHandler.Handle(w, r, apperrors.NewUnauthorizedError("Invalid authorization header format"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("Rejected access token", zap.Error(err))
				errHandler.Handle(w, r, apperrors.NewUnauthorizedError(tokenErrorMessage(err)))
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.Subject,
				Email:  claims.Email,
				Role:   claims.Role,
			})
			ctx = common.WithUserID(ctx, claims.Subject)
			if claims.Email != "" {
				ctx = common.WithUserEmail(ctx, claims.Email)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

// RequireUser rejects requests that Identify did not authenticate
func RequireUser(errHandler *apperrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := common.GetUserID(r.Context()); !ok {
				errHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
