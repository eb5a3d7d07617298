// Package auth verifies access tokens issued by the external auth provider.
// The gallery never issues tokens itself.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken     = errors.New("missing token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrNoUserInContext  = errors.New("no user in context")
)

// JWTConfig configures token validation
type JWTConfig struct {
	SigningMethod string
	SecretKey     string
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Claims are the claims carried by a provider access token.
// The subject is the provider's user ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates provider-issued tokens
type JWTValidator struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTValidator creates a validator. Only HMAC signing methods are supported.
func NewJWTValidator(cfg JWTConfig) (*JWTValidator, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	method := cfg.SigningMethod
	if method == "" {
		method = jwt.SigningMethodHS256.Alg()
	}
	switch method {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported signing method %q", method)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTValidator{
		secret: []byte(cfg.SecretKey),
		parser: jwt.NewParser(opts...),
	}, nil
}

// ValidateToken parses and verifies a raw token string
func (v *JWTValidator) ValidateToken(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// UserContext is the identity attached to an authenticated request
type UserContext struct {
	UserID string
	Email  string
	Role   string
}

type userContextKey struct{}

// SetUserInContext attaches the identity to ctx
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUserFromContext returns the identity attached by SetUserInContext
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
