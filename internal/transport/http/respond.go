package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"aptitude-service/internal/domain"
)

type apiResponse struct {
	Success bool        `json:"success"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, apiResponse{Success: true, Data: data})
}

// respondList adds the element count to the envelope.
func respondList(w http.ResponseWriter, count int, data interface{}) {
	writeResponse(w, http.StatusOK, apiResponse{Success: true, Count: &count, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, apiResponse{Error: &apiError{Code: code, Message: message}})
}

func writeResponse(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondServiceError maps domain error kinds to HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrNoAttempts):
		respondError(w, http.StatusNotFound, "no_attempts", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
