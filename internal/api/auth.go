package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// authMiddleware validates JWT session tokens and attaches the actor to
// the request context. Health, metrics and login stay open.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == HealthPath || r.URL.Path == MetricsPath || r.URL.Path == LoginPath {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get(AuthorizationHeader)
		if authHeader == "" {
			log.Warn().Str("path", r.URL.Path).Msg("Authorization header missing")
			respondError(w, http.StatusUnauthorized, ErrAuthHeaderRequired)
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			log.Warn().Str("path", r.URL.Path).Msg("Invalid authorization header format")
			respondError(w, http.StatusUnauthorized, ErrInvalidAuthHeader)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)

		claims, err := validateSessionToken(tokenString, s.auth.Secret)
		if err != nil {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg(LogJWTValidationFailed)
			respondError(w, http.StatusUnauthorized, ErrInvalidToken)
			return
		}

		actor := Actor{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  claims.Role,
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// validateSessionToken verifies the HMAC signature and standard claims
func validateSessionToken(tokenString string, secret []byte) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, errors.New("token missing subject or role")
	}
	return claims, nil
}

// issueSessionToken signs a session token for the given user identity
func issueSessionToken(cfg AuthConfig, userID, name, email, role string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Name:  name,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func withActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFromContext extracts the authenticated actor from the context
func ActorFromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(ActorKey).(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, errors.New(ErrActorNotFound)
	}
	return actor, nil
}
