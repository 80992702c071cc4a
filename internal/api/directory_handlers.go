package api

import (
	"net/http"
	"strconv"
	"time"
)

// ListUsersHandler handles GET /users, optionally filtered by ?role=
// (case-insensitive). Password hashes never leave the service.
func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	respondJSON(w, http.StatusOK, views)
}

// GetClinicHandler handles GET /clinic
func (s *Server) GetClinicHandler(w http.ResponseWriter, r *http.Request) {
	clinic, err := s.clinic.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, clinic)
}

// DashboardHandler handles GET /dashboard
func (s *Server) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	overview, err := s.dashboard.Overview(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

// DashboardAnalyticsHandler handles GET /dashboard/analytics with an
// optional ?year= override of the current year
func (s *Server) DashboardAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			year = parsed
		}
	}

	months, err := s.dashboard.Analytics(r.Context(), year)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"year": year, "months": months})
}

// UpcomingAppointmentsHandler handles GET /dashboard/upcoming-appointments
func (s *Server) UpcomingAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	upcoming, err := s.dashboard.Upcoming(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, upcoming)
}
