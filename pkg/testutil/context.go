package testutil

import (
	"context"
	"net/http"

	"reclaim/internal/platform/middleware"
	"reclaim/pkg/domain"
)

// WithUser adds an authenticated caller to the request context. This
// simulates what the auth middleware does for a valid bearer token.
func WithUser(req *http.Request, userID domain.UserID) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyModerator, false)
	return req.WithContext(ctx)
}

// WithModerator adds an authenticated moderator to the request context.
func WithModerator(req *http.Request, userID domain.UserID) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyModerator, true)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
