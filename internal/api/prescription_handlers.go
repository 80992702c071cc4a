package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/dal"
	"clinicdesk.io/clinicdesk/internal/metrics"
)

// PrescriptionHistory is the response of the history endpoint: the
// addressed version with its immediate successors, plus the audit trail
// recorded against the addressed version.
type PrescriptionHistory struct {
	Versions []dal.Prescription `json:"versions"`
	Audit    []dal.AuditEntry   `json:"audit"`
}

// ListPrescriptionsHandler handles GET /prescriptions, returning the
// clinically-in-effect versions, optionally filtered by ?patient= and
// ?visit=
func (s *Server) ListPrescriptionsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prescriptions, err := s.prescriptions.ListCurrent(r.Context(), q.Get("patient"), q.Get("visit"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prescriptions)
}

// CreatePrescriptionHandler handles POST /prescriptions. Only doctors
// prescribe, and the doctor reference must resolve to an active doctor.
func (s *Server) CreatePrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionCreate, ResourcePrescription, actor.Role) {
		metrics.RecordPrescriptionMutation("create", "forbidden")
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var p dal.Prescription
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	if p.DoctorID == "" {
		p.DoctorID = actor.ID
	}

	isDoctor, err := s.users.IsDoctor(r.Context(), p.DoctorID)
	if err != nil && !errors.Is(err, dal.ErrNotFound) {
		writeError(w, err)
		return
	}
	if !isDoctor {
		metrics.RecordPrescriptionMutation("create", "validation_failed")
		respondError(w, http.StatusUnprocessableEntity, "Prescribing doctor must be an active user with the doctor role")
		return
	}

	if err := s.prescriptions.Create(r.Context(), &p, actor.ID); err != nil {
		metrics.RecordPrescriptionMutation("create", "error")
		writeError(w, err)
		return
	}

	metrics.RecordPrescriptionMutation("create", "success")
	respondJSON(w, http.StatusCreated, p)
}

// GetPrescriptionHandler handles GET /prescriptions/{id}
func (s *Server) GetPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.prescriptions.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// AmendPrescriptionHandler handles PUT /prescriptions/{id}. The target
// version is superseded and a new linked version is appended; a
// concurrent amend of the same version loses with a 409.
func (s *Server) AmendPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionUpdate, ResourcePrescription, actor.Role) {
		metrics.RecordPrescriptionMutation("amend", "forbidden")
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var req dal.AmendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	id := mux.Vars(r)["id"]
	next, err := s.prescriptions.Amend(r.Context(), id, req, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, dal.ErrCASMismatch):
			metrics.RecordPrescriptionMutation("amend", "conflict")
			log.Warn().Str("prescription", id).Str("actor", actor.ID).Msg("Concurrent amend lost the race")
		case errors.Is(err, dal.ErrNotFound):
			metrics.RecordPrescriptionMutation("amend", "not_found")
		default:
			metrics.RecordPrescriptionMutation("amend", "error")
		}
		writeError(w, err)
		return
	}

	metrics.RecordPrescriptionMutation("amend", "success")
	respondJSON(w, http.StatusOK, next)
}

// RetractPrescriptionHandler handles DELETE /prescriptions/{id}. Admin
// only; soft-deletes the addressed version without touching siblings.
func (s *Server) RetractPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionDelete, ResourcePrescription, actor.Role) {
		metrics.RecordPrescriptionMutation("retract", "forbidden")
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.prescriptions.Retract(r.Context(), id, actor.ID); err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			metrics.RecordPrescriptionMutation("retract", "not_found")
		} else {
			metrics.RecordPrescriptionMutation("retract", "error")
		}
		writeError(w, err)
		return
	}

	metrics.RecordPrescriptionMutation("retract", "success")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Prescription deleted"})
}

// PrescriptionHistoryHandler handles GET /prescriptions/{id}/history
func (s *Server) PrescriptionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	versions, err := s.prescriptions.Chain(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(versions) == 0 {
		respondError(w, http.StatusNotFound, "Resource not found")
		return
	}

	audit, err := s.audit.ListByEntity(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PrescriptionHistory{Versions: versions, Audit: audit})
}
