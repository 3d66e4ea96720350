// Package middleware provides HTTP middleware for reviewer authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const reviewerKey ContextKey = "reviewer"

// TokenValidator validates bearer tokens.
// The server's JWTService satisfies it through an adapter to avoid an import cycle.
type TokenValidator interface {
	ValidateToken(tokenString string) (ReviewerGetter, error)
}

// ReviewerGetter extracts the reviewer identity from token claims.
type ReviewerGetter interface {
	GetReviewer() string
}

// AuthMiddleware validates the bearer token and stores the reviewer in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			reviewer := claims.GetReviewer()
			if reviewer == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithReviewer(r.Context(), reviewer)))
		})
	}
}

// bearerToken parses "Bearer <token>", case-insensitive on the scheme
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], parts[1] != ""
}

// WithReviewer returns a context carrying the reviewer identity
func WithReviewer(ctx context.Context, reviewer string) context.Context {
	return context.WithValue(ctx, reviewerKey, reviewer)
}

// GetReviewer extracts the authenticated reviewer from the request context.
func GetReviewer(r *http.Request) (string, error) {
	reviewer, ok := r.Context().Value(reviewerKey).(string)
	if !ok || reviewer == "" {
		return "", fmt.Errorf("reviewer not found in request context")
	}
	return reviewer, nil
}
