// internal/app/features/governance/handler_test.go
package governance_test

import (
	"context"
	"net/http"
	"testing"

	governancefeature "github.com/dalemusser/hackhub/internal/app/features/governance"
	institutestore "github.com/dalemusser/hackhub/internal/app/store/institutes"
	invitestore "github.com/dalemusser/hackhub/internal/app/store/invites"
	notificationstore "github.com/dalemusser/hackhub/internal/app/store/notifications"
	pendingstore "github.com/dalemusser/hackhub/internal/app/store/pending"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/credentials"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	governanceflow "github.com/dalemusser/hackhub/internal/app/workflow/governance"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type nopSender struct{}

func (nopSender) Send(context.Context, mailer.Email) error { return nil }

// authWith attaches a spoc identity for INST01 to an existing request.
func authWith(r *http.Request, userID primitive.ObjectID) *http.Request {
	return auth.WithTestIdentity(r, testutil.SpocIdentity(userID, "inst01"))
}

func setup(t *testing.T) (*governancefeature.Handler, *testutil.Fixtures) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)

	pending := pendingstore.New(db)
	users := userstore.New(db)
	teams := teamstore.New(db)
	invites := invitestore.New(db)
	sink := notify.NewSink(notificationstore.New(db))

	svc := governanceflow.NewService(
		pending, users, teams, institutestore.New(db),
		credentials.New(bcrypt.MinCost), sink, nopSender{},
		"HackHub", "https://hackhub.test/login",
	)
	h := governancefeature.NewHandler(svc, pending, users, teams, invites, zap.NewNop())
	return h, fx
}

func TestServeRegistrations_Scoping(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreatePendingRegistration(ctx, "Home Team", "home@test.example", "INST01",
		"h1@test.example", "h2@test.example", "h3@test.example", "h4@test.example")
	fx.CreatePendingRegistration(ctx, "Away Team", "away@test.example", "INST02",
		"a1@test.example", "a2@test.example", "a3@test.example", "a4@test.example")

	spoc := fx.CreateSpoc(ctx, "Spoc", "spoc@test.example", "INST01")
	admin := fx.CreateAdmin(ctx, "Admin", "admin@test.example")

	var resp struct {
		Registrations []models.PendingRegistration `json:"registrations"`
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/governance/registrations", testutil.SpocIdentity(spoc.ID, "inst01"))
	rec := testutil.NewRecorder()
	h.ServeRegistrations(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &resp)
	if len(resp.Registrations) != 1 || resp.Registrations[0].Name != "Home Team" {
		t.Fatalf("spoc should see only their institute, got %d registrations", len(resp.Registrations))
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/governance/registrations", testutil.AdminIdentity(admin.ID))
	rec = testutil.NewRecorder()
	h.ServeRegistrations(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)
	resp.Registrations = nil
	rec.DecodeJSON(t, &resp)
	if len(resp.Registrations) != 2 {
		t.Fatalf("admin should see every institute, got %d registrations", len(resp.Registrations))
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/governance/registrations?status=bogus", testutil.AdminIdentity(admin.ID))
	rec = testutil.NewRecorder()
	h.ServeRegistrations(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeApprove_ReturnsCredentialsOnce(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	reg := fx.CreatePendingRegistration(ctx, "Rocket Club", "lead@test.example", "INST01",
		"m1@test.example", "m2@test.example", "m3@test.example", "m4@test.example")
	admin := fx.CreateAdmin(ctx, "Admin", "admin@test.example")

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/governance/registrations/"+reg.ID.Hex()+"/approve", testutil.AdminIdentity(admin.ID))
	req = testutil.WithChiURLParam(req, "id", reg.ID.Hex())
	rec := testutil.NewRecorder()
	h.ServeApprove(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)

	var result governanceflow.ApprovalResult
	rec.DecodeJSON(t, &result)
	if result.TeamName != "Rocket Club" {
		t.Errorf("team name: got %q", result.TeamName)
	}
	// leader + 4 members + mentor + spoc
	if len(result.Credentials) != 7 {
		t.Fatalf("credentials: got %d, want 7", len(result.Credentials))
	}
	for _, c := range result.Credentials {
		if c.Password == "" {
			t.Errorf("credential for %s missing its one-time password", c.Email)
		}
	}

	// Second approval for the same registration conflicts.
	req = testutil.NewAuthenticatedRequest(http.MethodPost, "/governance/registrations/"+reg.ID.Hex()+"/approve", testutil.AdminIdentity(admin.ID))
	req = testutil.WithChiURLParam(req, "id", reg.ID.Hex())
	rec = testutil.NewRecorder()
	h.ServeApprove(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestServeReject_RequiresReason(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	reg := fx.CreatePendingRegistration(ctx, "Doomed", "lead@test.example", "INST01",
		"m1@test.example", "m2@test.example", "m3@test.example", "m4@test.example")
	spoc := fx.CreateSpoc(ctx, "Spoc", "spoc@test.example", "INST01")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/governance/registrations/"+reg.ID.Hex()+"/reject", map[string]string{"reason": "   "})
	req = testutil.WithChiURLParam(req, "id", reg.ID.Hex())
	req = authWith(req, spoc.ID)
	rec := testutil.NewRecorder()
	h.ServeReject(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusBadRequest)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/governance/registrations/"+reg.ID.Hex()+"/reject", map[string]string{"reason": "incomplete consent form"})
	req = testutil.WithChiURLParam(req, "id", reg.ID.Hex())
	req = authWith(req, spoc.ID)
	rec = testutil.NewRecorder()
	h.ServeReject(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)
}
