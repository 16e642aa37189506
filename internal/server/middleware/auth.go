// Package middleware provides HTTP middleware for host authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// hostIDKey is the context key for storing the authenticated host ID.
const hostIDKey ContextKey = "hostID"

// TokenValidator validates bearer tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (HostIDGetter, error)
}

// HostIDGetter extracts the host ID from token claims.
type HostIDGetter interface {
	GetHostID() uuid.UUID
}

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Authenticate validates the request's bearer token and returns a request
// carrying the host ID in its context.
func Authenticate(validator TokenValidator, r *http.Request) (*http.Request, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, fmt.Errorf("missing bearer token")
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	ctx := context.WithValue(r.Context(), hostIDKey, claims.GetHostID())
	return r.WithContext(ctx), nil
}

// AuthMiddleware creates middleware that rejects requests without a valid
// host token and adds the host ID to the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authed, err := Authenticate(validator, r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}

// GetHostID extracts the authenticated host ID from the request context.
func GetHostID(r *http.Request) (uuid.UUID, error) {
	hostID, ok := r.Context().Value(hostIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("host ID not found in request context")
	}
	return hostID, nil
}

// WithHostID returns ctx carrying hostID, as AuthMiddleware would.
func WithHostID(ctx context.Context, hostID uuid.UUID) context.Context {
	return context.WithValue(ctx, hostIDKey, hostID)
}
