package common

import (
	"context"
	"time"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyUserID    ContextKey = "user_id"
	ContextKeyUserEmail ContextKey = "user_email"
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyClientKey ContextKey = "client_key"
	ContextKeyStartTime ContextKey = "start_time"
)

// WithUserID adds the authenticated user ID to context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	return userID, ok && userID != ""
}

// WithUserEmail adds the authenticated user's email to context
func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextKeyUserEmail, email)
}

// GetUserEmail extracts the authenticated user's email from context
func GetUserEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ContextKeyUserEmail).(string)
	return email, ok
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithClientKey adds the rate-limit client key to context
func WithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextKeyClientKey, key)
}

// GetClientKey extracts the rate-limit client key from context
func GetClientKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ContextKeyClientKey).(string)
	return key, ok
}

// WithStartTime adds start time to context
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyStartTime, startTime)
}

// GetElapsedTime calculates elapsed time from start time in context
func GetElapsedTime(ctx context.Context) time.Duration {
	if startTime, ok := ctx.Value(ContextKeyStartTime).(time.Time); ok {
		return time.Since(startTime)
	}
	return 0
}
