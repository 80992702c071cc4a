package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/dal"
)

// PatientDetails bundles a patient with their clinical history
type PatientDetails struct {
	Patient      *dal.Patient      `json:"patient"`
	Appointments []dal.Appointment `json:"appointments"`
	Visits       []dal.Visit       `json:"visits"`
}

// ListPatientsHandler handles GET /patients with pagination and search
func (s *Server) ListPatientsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := dal.ParsePagination(q.Get("page"), q.Get("limit"), DefaultLimit)

	result, err := s.patients.List(r.Context(), page, limit, q.Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CreatePatientHandler handles POST /patients
func (s *Server) CreatePatientHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionCreate, ResourcePatient, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var p dal.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	if err := s.patients.Create(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// GetPatientHandler handles GET /patients/{id}
func (s *Server) GetPatientHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.patients.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// UpdatePatientHandler handles PUT /patients/{id}
func (s *Server) UpdatePatientHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionUpdate, ResourcePatient, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var upd dal.Patient
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	p, err := s.patients.Update(r.Context(), mux.Vars(r)["id"], &upd)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeletePatientHandler handles DELETE /patients/{id}. References from
// appointments, visits and prescriptions are left dangling on purpose.
func (s *Server) DeletePatientHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionDelete, ResourcePatient, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.patients.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("patient", id).Str("deletedBy", actor.ID).Msg("Patient deleted")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Patient deleted"})
}

// PatientDetailsHandler handles GET /patients/{id}/details
func (s *Server) PatientDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	patient, err := s.patients.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	appointments, err := s.appointments.ListByPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	visits, err := s.visits.ListByPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PatientDetails{
		Patient:      patient,
		Appointments: appointments,
		Visits:       visits,
	})
}
