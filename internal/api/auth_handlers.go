package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"clinicdesk.io/clinicdesk/internal/dal"
)

// LoginHandler verifies credentials and issues a session token
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			log.Warn().Str("email", req.Email).Msg("Login attempt for unknown email")
			respondError(w, http.StatusUnauthorized, ErrInvalidCredentials)
			return
		}
		writeError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn().Str("email", req.Email).Msg("Login attempt with wrong password")
		respondError(w, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}

	if !user.IsActive {
		log.Warn().Str("user", user.ID).Msg("Login attempt on disabled account")
		respondError(w, http.StatusForbidden, ErrAccountDisabled)
		return
	}

	token, err := issueSessionToken(s.auth, user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("user", user.ID).Str("role", user.Role).Msg("User logged in")
	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int(s.auth.TTL.Seconds()),
		User:      UserView{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role},
	})
}

// UserInfoHandler returns the authenticated user's profile
func (s *Server) UserInfoHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}

	user, err := s.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, UserView{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role})
}

// HealthHandler provides a health check endpoint
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   "clinicdesk-api",
	})
}
