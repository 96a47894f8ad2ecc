package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/hackhub/internal/domain/workflow"
)

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", workflow.ErrNotFound, http.StatusNotFound},
		{"not authorized", workflow.ErrNotAuthorized, http.StatusForbidden},
		{"cross institute", workflow.ErrCrossInstitute, http.StatusForbidden},
		{"already processed", workflow.ErrAlreadyProcessed, http.StatusConflict},
		{"not pending", workflow.ErrNotPending, http.StatusConflict},
		{"team full", workflow.ErrTeamFull, http.StatusConflict},
		{"already teamed", workflow.ErrAlreadyTeamed, http.StatusConflict},
		{"duplicate pending", workflow.ErrDuplicatePending, http.StatusConflict},
		{"validation", workflow.ErrValidation, http.StatusBadRequest},
		{"partial provisioning", workflow.ErrPartialProvisioning, http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("%w: team_name: required", workflow.ErrValidation), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body["error"]
}

func TestError_MasksInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("connection refused to mongodb://secret-host:27017"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decodeError(t, rec); got != "internal error" {
		t.Errorf("body leaked internals: %q", got)
	}
}

// A partial-provisioning failure means the data is in an inconsistent
// state, so its message must reach the caller instead of the generic
// internal-error mask.
func TestError_PartialProvisioningIsDistinct(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("%w: rollback failed", workflow.ErrPartialProvisioning))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	got := decodeError(t, rec)
	if got == "internal error" {
		t.Fatal("partial provisioning was masked as a generic internal error")
	}
	if !strings.Contains(got, workflow.ErrPartialProvisioning.Error()) {
		t.Errorf("body = %q, want it to carry %q", got, workflow.ErrPartialProvisioning.Error())
	}
}
