package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StudentIdentity returns a bearer identity for a student of the
// given institute.
func StudentIdentity(userID primitive.ObjectID, instituteCode string) auth.Identity {
	return auth.Identity{
		UserID:        userID,
		Role:          models.RoleStudent,
		InstituteCode: instituteCode,
	}
}

// SpocIdentity returns a bearer identity for a SPOC of the given
// institute.
func SpocIdentity(userID primitive.ObjectID, instituteCode string) auth.Identity {
	return auth.Identity{
		UserID:        userID,
		Role:          models.RoleSpoc,
		InstituteCode: instituteCode,
	}
}

// AdminIdentity returns a bearer identity for an admin.
func AdminIdentity(userID primitive.ObjectID) auth.Identity {
	return auth.Identity{
		UserID: userID,
		Role:   models.RoleAdmin,
	}
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates an HTTP request carrying a JSON body.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with an identity in
// context, bypassing the bearer-token middleware.
func NewAuthenticatedRequest(method, target string, id auth.Identity) *http.Request {
	return auth.WithTestIdentity(httptest.NewRequest(method, target, nil), id)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !bytes.Contains(r.Body.Bytes(), []byte(expected)) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON unmarshals the response body into out.
func (r *ResponseRecorder) DecodeJSON(t *testing.T, out any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
