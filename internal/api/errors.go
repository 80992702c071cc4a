package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/dal"
)

// respondJSON writes v as the JSON response body
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes a JSON error body with the given status
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError maps a model error onto the HTTP taxonomy. Unrecognized
// errors are logged and masked as internal server errors.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dal.ErrValidation):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, dal.ErrNotFound):
		respondError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, dal.ErrCASMismatch):
		respondError(w, http.StatusConflict, "Document was modified concurrently, please retry")
	case errors.Is(err, dal.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "Resource already exists")
	default:
		log.Error().Err(err).Msg("Unhandled error in request handler")
		respondError(w, http.StatusInternalServerError, ErrInternal)
	}
}
