package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/dal"
)

// ListAppointmentsHandler handles GET /appointments, optionally scoped
// to one patient via ?patient=
func (s *Server) ListAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		appointments []dal.Appointment
		err          error
	)
	if patientID := r.URL.Query().Get("patient"); patientID != "" {
		appointments, err = s.appointments.ListByPatient(r.Context(), patientID)
	} else {
		appointments, err = s.appointments.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, appointments)
}

// CreateAppointmentHandler handles POST /appointments
func (s *Server) CreateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionCreate, ResourceAppointment, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var a dal.Appointment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	if err := s.appointments.Create(r.Context(), &a); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// UpdateAppointmentHandler handles PUT /appointments/{id}, covering
// reschedules and status changes
func (s *Server) UpdateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionUpdate, ResourceAppointment, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var upd dal.Appointment
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	a, err := s.appointments.Update(r.Context(), mux.Vars(r)["id"], &upd)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DeleteAppointmentHandler handles DELETE /appointments/{id}
func (s *Server) DeleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionDelete, ResourceAppointment, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.appointments.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("appointment", id).Str("deletedBy", actor.ID).Msg("Appointment deleted")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted"})
}
