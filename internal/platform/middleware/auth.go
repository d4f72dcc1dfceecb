package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"reclaim/pkg/domain"
)

// TokenValidator defines the interface for validating bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
// Moderator marks callers allowed to change status on items they do not own.
type TokenClaims struct {
	UserID    domain.UserID
	Moderator bool
}

type contextKeyUserID struct{}
type contextKeyModerator struct{}

var (
	ContextKeyUserID    = contextKeyUserID{}
	ContextKeyModerator = contextKeyModerator{}
)

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) domain.UserID {
	userID, ok := ctx.Value(ContextKeyUserID).(domain.UserID)
	if !ok {
		return domain.UserID{}
	}
	return userID
}

// IsModerator reports whether the authenticated caller carries the moderator
// claim.
func IsModerator(ctx context.Context) bool {
	mod, ok := ctx.Value(ContextKeyModerator).(bool)
	return ok && mod
}

// RequireAuth validates the Authorization bearer token and stores the caller
// identity in the request context. Identity extraction is the only
// authentication concern this engine owns; account management lives with the
// surrounding platform.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyModerator, claims.Moderator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
