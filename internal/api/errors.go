package api

import (
	"encoding/json"
	"net/http"

	"github.com/portfolio-tracker/internal/apperrors"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError writes a JSON error body of the form {"error": "..."}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAuthError writes a JSON error body of the form {"msg": "..."}.
// The auth endpoints use this shape for compatibility with existing clients.
func respondAuthError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"msg": message})
}

// mapAppError translates a service-layer error into an HTTP error response.
func mapAppError(w http.ResponseWriter, err error, authShape bool) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	if appErr, ok := apperrors.AsError(err); ok {
		status = appErr.StatusCode
		message = appErr.Message
	}

	if authShape {
		respondAuthError(w, status, message)
		return
	}
	respondError(w, status, message)
}
