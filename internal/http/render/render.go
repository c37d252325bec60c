// Package render writes JSON responses and maps domain errors to HTTP status
// codes.
package render

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/ledger/internal/apperror"
)

type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Domain    string `json:"domain,omitempty"`
	Message   string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error renders err. Domain errors keep their code and message; anything
// else is logged and reported as a generic internal error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperror.As(err)
	if !ok || e.Kind == apperror.KindSystem {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)

		JSON(w, http.StatusInternalServerError, ErrorResponse{
			ErrorCode: "INTERNAL_ERROR",
			Message:   "An unexpected error occurred",
		})

		return
	}

	JSON(w, StatusFor(e.Kind), ErrorResponse{
		ErrorCode: e.Code,
		Domain:    e.Domain,
		Message:   e.Message,
	})
}

// BadRequest reports a malformed request that never reached the domain.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorResponse{ErrorCode: "BAD_REQUEST", Message: message})
}

func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict, apperror.KindInvalidState:
		return http.StatusConflict
	case apperror.KindInvalidInput:
		return http.StatusBadRequest
	case apperror.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}
