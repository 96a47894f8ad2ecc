// Package render writes JSON responses and maps workflow errors onto
// HTTP status codes in one place, so every feature reports the same
// failure the same way.
package render

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the workflow error taxonomy onto HTTP codes. Anything
// outside the taxonomy is an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNotAuthorized),
		errors.Is(err, workflow.ErrCrossInstitute):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrAlreadyProcessed),
		errors.Is(err, workflow.ErrNotPending),
		errors.Is(err, workflow.ErrTeamFull),
		errors.Is(err, workflow.ErrAlreadyTeamed),
		errors.Is(err, workflow.ErrDuplicatePending):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrPartialProvisioning):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON problem. Workflow errors surface their
// own stable message; anything else is logged and reported generically
// so store internals never leak to clients.
func Error(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		// Partial provisioning is the one 500 a caller must be able
		// to recognize: the data is inconsistent and needs operator
		// attention, not a retry.
		if !errors.Is(err, workflow.ErrPartialProvisioning) {
			msg = "internal error"
		}
	}
	JSON(w, status, map[string]string{"error": msg})
}
