package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/dal"
)

// ListVisitsHandler handles GET /visits, optionally scoped to one
// patient via ?patient=
func (s *Server) ListVisitsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		visits []dal.Visit
		err    error
	)
	if patientID := r.URL.Query().Get("patient"); patientID != "" {
		visits, err = s.visits.ListByPatient(r.Context(), patientID)
	} else {
		visits, err = s.visits.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, visits)
}

// CreateVisitHandler handles POST /visits. Only doctors record visits.
func (s *Server) CreateVisitHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionCreate, ResourceVisit, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var v dal.Visit
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	if v.DoctorID == "" {
		v.DoctorID = actor.ID
	}

	if err := s.visits.Create(r.Context(), &v); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

// UpdateVisitHandler handles PUT /visits/{id}
func (s *Server) UpdateVisitHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionUpdate, ResourceVisit, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var upd dal.Visit
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	v, err := s.visits.Update(r.Context(), mux.Vars(r)["id"], &upd)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// DeleteVisitHandler handles DELETE /visits/{id}
func (s *Server) DeleteVisitHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, ErrInvalidToken)
		return
	}
	if !Allow(ActionDelete, ResourceVisit, actor.Role) {
		respondError(w, http.StatusForbidden, ErrForbidden)
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.visits.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("visit", id).Str("deletedBy", actor.ID).Msg("Visit deleted")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Visit deleted"})
}

// VisitSummaryHandler handles GET /visits/{id}/summary. Pass
// ?force=true to regenerate past a cached summary.
func (s *Server) VisitSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	force := r.URL.Query().Get("force") == "true"

	result, err := s.generator.Summarize(r.Context(), id, force)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("visit", id).Str("source", result.Source).Bool("force", force).Msg("Visit summary served")
	respondJSON(w, http.StatusOK, result)
}
