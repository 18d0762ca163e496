package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kjayal/clientvault"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the appropriate error response based on error class
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	var partial *clientvault.PartialDeleteError
	if errors.As(err, &partial) {
		// Metadata is intact; the caller retries the same delete.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		if encErr := json.NewEncoder(w).Encode(ErrorResponse{
			Error:      "partial_delete",
			Message:    partial.Error(),
			FailedKeys: partial.FailedKeys(),
		}); encErr != nil {
			slog.Error("failed to encode error response", "error", encErr)
		}
		return
	}

	switch {
	case errors.Is(err, clientvault.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Client not found")
	case errors.Is(err, clientvault.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, clientvault.ErrAlreadyExists):
		WriteError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, clientvault.ErrTransient):
		WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "Storage temporarily unavailable, retry later")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
