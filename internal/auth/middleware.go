package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey is a type for context keys
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey contextKey = "userId"
	// IdentityKey is the context key for the full verified identity
	IdentityKey contextKey = "identity"
)

// Middleware provides authentication middleware for HTTP handlers
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware. A nil service rejects every
// protected request.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// RequireAuth is middleware that requires a valid JWT token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" || m.authService == nil {
			writeAuthError(w, http.StatusUnauthorized, ErrNotAuthenticated)
			return
		}

		identity, err := m.authService.Verify(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, ErrNotAuthenticated)
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// OptionalAuth is middleware that validates JWT if present but doesn't require it
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token != "" && m.authService != nil {
			if identity, err := m.authService.Verify(token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
		}
		next(w, r)
	}
}

// WithIdentity stores a verified identity on ctx
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, identity.UserID)
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetIdentity extracts the verified identity from the request context
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(IdentityKey).(*Identity)
	return identity
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, err *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(err)
}
