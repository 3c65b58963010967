package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/config"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
)

// Identity is the caller resolved from a verified access token
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Service verifies access tokens issued by the hosted auth backend. Sessions
// are never issued here.
type Service struct {
	config config.AuthConfig
	logger *logging.Logger
}

// NewService creates a new token verifier
func NewService(cfg config.AuthConfig, logger *logging.Logger) *Service {
	return &Service{
		config: cfg,
		logger: logger,
	}
}

// Verify validates a JWT access token and returns the caller's identity
func (s *Service) Verify(tokenString string) (*Identity, error) {
	if s.config.JWTSecret == "" {
		return nil, &AuthError{Code: "auth_disabled", Message: "token verification is not configured"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if s.config.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(s.config.JWTAudience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token claims"}
	}

	userID, _ := claims["sub"].(string)
	if strings.TrimSpace(userID) == "" {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}

	identity := &Identity{UserID: userID}
	identity.Email, _ = claims["email"].(string)
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if name, ok := meta["full_name"].(string); ok {
			identity.Name = name
		} else if name, ok := meta["name"].(string); ok {
			identity.Name = name
		}
	}
	if identity.Name == "" {
		identity.Name, _ = claims["name"].(string)
	}
	if identity.Name == "" && identity.Email != "" {
		identity.Name = strings.SplitN(identity.Email, "@", 2)[0]
	}

	return identity, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}

var (
	// ErrNotAuthenticated is returned when a mutation has no verified caller
	ErrNotAuthenticated = &AuthError{Code: "not_authenticated", Message: "Not authenticated"}
	// ErrNotAuthorized is returned when the caller lacks permission for the target
	ErrNotAuthorized = &AuthError{Code: "not_authorized", Message: "Not authorized"}
)
