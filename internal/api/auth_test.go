package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinicdesk.io/clinicdesk/internal/dal"
)

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: []byte("test-secret"), TTL: time.Hour}
}

func TestAuthMiddleware(t *testing.T) {
	server := NewServer(dal.NewMemoryStore(), nil, testAuthConfig())

	// Create a test handler
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Wrap with auth middleware
	authHandler := server.authMiddleware(handler)

	validToken, err := issueSessionToken(server.auth, "user-1", "Test User", "test@clinic.com", dal.RoleDoctor)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	otherSecret := AuthConfig{Secret: []byte("other-secret"), TTL: time.Hour}
	forgedToken, err := issueSessionToken(otherSecret, "user-1", "Test User", "test@clinic.com", dal.RoleDoctor)
	if err != nil {
		t.Fatalf("Failed to issue forged token: %v", err)
	}

	expiredCfg := AuthConfig{Secret: server.auth.Secret, TTL: -time.Hour}
	expiredToken, err := issueSessionToken(expiredCfg, "user-1", "Test User", "test@clinic.com", dal.RoleDoctor)
	if err != nil {
		t.Fatalf("Failed to issue expired token: %v", err)
	}

	tests := []struct {
		name           string
		path           string
		authHeader     string
		expectedStatus int
	}{
		{
			name:           "Health endpoint should skip auth",
			path:           "/health",
			authHeader:     "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Metrics endpoint should skip auth",
			path:           "/metrics",
			authHeader:     "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Login endpoint should skip auth",
			path:           "/auth/login",
			authHeader:     "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "API endpoint without auth should fail",
			path:           "/patients",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "API endpoint with invalid auth should fail",
			path:           "/patients",
			authHeader:     "Invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "API endpoint with Bearer but no token should fail",
			path:           "/patients",
			authHeader:     "Bearer ",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Token signed with wrong secret should fail",
			path:           "/patients",
			authHeader:     "Bearer " + forgedToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired token should fail",
			path:           "/patients",
			authHeader:     "Bearer " + expiredToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid token should pass",
			path:           "/patients",
			authHeader:     "Bearer " + validToken,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rr := httptest.NewRecorder()
			authHandler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}

func TestActorRoundTrip(t *testing.T) {
	server := NewServer(dal.NewMemoryStore(), nil, testAuthConfig())

	var captured Actor
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := ActorFromContext(r.Context())
		if err != nil {
			t.Errorf("Actor should be in context: %v", err)
		}
		captured = actor
		w.WriteHeader(http.StatusOK)
	})

	token, err := issueSessionToken(server.auth, "user-42", "Dr. Who", "who@clinic.com", dal.RoleDoctor)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	req := httptest.NewRequest("GET", "/visits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	server.authMiddleware(handler).ServeHTTP(rr, req)

	if captured.ID != "user-42" || captured.Role != dal.RoleDoctor || captured.Email != "who@clinic.com" {
		t.Errorf("Actor claims did not round-trip: %+v", captured)
	}
}
