package api

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Context key types to avoid collisions (Go best practice)
type contextKey string

const (
	ActorKey contextKey = "actor"
)

// HTTP header constants
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

// HTTP path constants
const (
	HealthPath    = "/health"
	MetricsPath   = "/metrics"
	LoginPath     = "/auth/login"
	DefaultLimit  = 5
	DefaultAdmin  = "admin@clinic.com"
	DefaultSecret = "clinicdesk-dev-secret"
)

// Error message constants
const (
	ErrAuthHeaderRequired = "Authorization header required"
	ErrInvalidAuthHeader  = "Invalid authorization header format"
	ErrInvalidToken       = "Invalid token"
	ErrInvalidJSON        = "Invalid JSON format"
	ErrForbidden          = "Insufficient permissions"
	ErrInvalidCredentials = "Invalid email or password"
	ErrAccountDisabled    = "Account is disabled"
	ErrInternal           = "Internal server error"
	ErrActorNotFound      = "actor not found in context"
)

// Log message constants
const (
	LogJWTValidationFailed = "JWT token validation failed"
)

// Actor is the authenticated staff member attached to a request
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// SessionClaims is the JWT payload issued by /auth/login
type SessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig carries the session token signing parameters
type AuthConfig struct {
	Secret []byte
	TTL    time.Duration
}

// AuthConfigFromEnv loads the signing secret and token lifetime from
// SESSION_SECRET and SESSION_TTL
func AuthConfigFromEnv() AuthConfig {
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = DefaultSecret
	}

	ttl := 24 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	return AuthConfig{Secret: []byte(secret), TTL: ttl}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserView is a user document with credentials stripped
type UserView struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse represents the login response body
type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresIn int      `json:"expires_in"`
	User      UserView `json:"user"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}
