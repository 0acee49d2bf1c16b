package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"docscanner/internal/model"
)

// statusFor maps pipeline and manager errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrModelUnavailable),
		errors.Is(err, model.ErrOCRUnavailable),
		errors.Is(err, model.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
