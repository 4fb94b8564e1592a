// Package api provides HTTP handlers for the lease negotiation API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leaseflow/leaseflow/internal/domain"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// DomainError maps sentinel errors from the store and engine onto HTTP
// status codes. Anything unrecognized is a 500 and gets logged.
func DomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoundNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAccessDenied):
		Error(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrDuplicateRound):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		Error(w, http.StatusConflict, "renegotiation in progress, please refresh")
	default:
		slog.Error("Unhandled error in request", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
