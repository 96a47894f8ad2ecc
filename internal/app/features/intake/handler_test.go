// internal/app/features/intake/handler_test.go
package intake_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/hackhub/internal/app/features/intake"
	institutestore "github.com/dalemusser/hackhub/internal/app/store/institutes"
	pendingstore "github.com/dalemusser/hackhub/internal/app/store/pending"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/credentials"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T) (*intake.Handler, *testutil.Fixtures) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	h := intake.NewHandler(
		pendingstore.New(db),
		userstore.New(db),
		teamstore.New(db),
		institutestore.New(db),
		credentials.New(bcrypt.MinCost),
		mailer.LogSender{},
		"HackHub",
		zap.NewNop(),
	)
	return h, fx
}

func validBody(teamName string) map[string]any {
	return map[string]any{
		"team_name":       teamName,
		"leader_name":     "Asha Rao",
		"leader_email":    "asha@example.com",
		"leader_password": "open-sesame",
		"institute_code":  "INST01",
		"institute_name":  "Test Institute",
		"mentor_name":     "Dr. Iyer",
		"mentor_email":    "iyer@example.com",
		"spoc_name":       "Prof. Nair",
		"spoc_email":      "nair@example.com",
		"members": []map[string]string{
			{"name": "M One", "email": "m1@example.com"},
			{"name": "M Two", "email": "m2@example.com"},
			{"name": "M Three", "email": "m3@example.com"},
			{"name": "M Four", "email": "m4@example.com"},
		},
	}
}

func post(t *testing.T, h *intake.Handler, body map[string]any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/register", body)
	rec := testutil.NewRecorder()
	h.ServeRegister(rec.ResponseRecorder, req)
	return rec
}

func TestServeRegister_StagesRegistration(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := post(t, h, validBody("Rocket Club"))
	rec.AssertStatus(t, http.StatusCreated)

	var reg models.PendingRegistration
	if err := fx.DB().Collection("pending_registrations").FindOne(ctx, bson.M{"name": "Rocket Club"}).Decode(&reg); err != nil {
		t.Fatalf("staged registration not found: %v", err)
	}
	if reg.Status != models.RegistrationPending {
		t.Errorf("status: got %q, want pending", reg.Status)
	}
	if len(reg.PendingMembers) != 4 {
		t.Errorf("pending members: got %d, want 4", len(reg.PendingMembers))
	}
	if reg.LeaderPasswordHash == "" || reg.LeaderPasswordHash == "open-sesame" {
		t.Error("leader password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(reg.LeaderPasswordHash), []byte("open-sesame")); err != nil {
		t.Errorf("stored hash does not match submitted password: %v", err)
	}
	if reg.ConsentFileRef == "" {
		t.Error("expected a consent file reference")
	}

	// The institute record is upserted alongside.
	var inst models.Institute
	if err := fx.DB().Collection("institutes").FindOne(ctx, bson.M{"code": "INST01"}).Decode(&inst); err != nil {
		t.Fatalf("institute not upserted: %v", err)
	}
}

func TestServeRegister_Validation(t *testing.T) {
	h, _ := setup(t)

	t.Run("wrong member count", func(t *testing.T) {
		body := validBody("Team A")
		body["members"] = body["members"].([]map[string]string)[:3]
		post(t, h, body).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("duplicate member email", func(t *testing.T) {
		body := validBody("Team B")
		members := body["members"].([]map[string]string)
		members[1]["email"] = members[0]["email"]
		post(t, h, body).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("leader email repeated as member", func(t *testing.T) {
		body := validBody("Team C")
		body["members"].([]map[string]string)[0]["email"] = "Asha@Example.com"
		post(t, h, body).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("short password", func(t *testing.T) {
		body := validBody("Team D")
		body["leader_password"] = "short"
		post(t, h, body).AssertStatus(t, http.StatusBadRequest)
	})
}

func TestServeRegister_NameConflicts(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	t.Run("pending registration holds the name", func(t *testing.T) {
		post(t, h, validBody("Rocket Club")).AssertStatus(t, http.StatusCreated)

		body := validBody("rocket club") // case-folded match
		body["leader_email"] = "other@example.com"
		for i, m := range body["members"].([]map[string]string) {
			m["email"] = "other" + string(rune('a'+i)) + "@example.com"
		}
		post(t, h, body).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("approved team holds the name", func(t *testing.T) {
		fx.CreateInstitute(ctx, "INST01", "Test Institute")
		leader := fx.CreateStudent(ctx, "Lead", "lead@example.com", "INST01")
		fx.CreateTeam(ctx, "Moon Shot", "INST01", leader.ID)

		body := validBody("Moon Shot")
		body["leader_email"] = "fresh@example.com"
		for i, m := range body["members"].([]map[string]string) {
			m["email"] = "fresh" + string(rune('a'+i)) + "@example.com"
		}
		post(t, h, body).AssertStatus(t, http.StatusBadRequest)
	})
}

func TestServeRegister_MemberConflicts(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateInstitute(ctx, "INST01", "Test Institute")
	leader := fx.CreateStudent(ctx, "Lead", "lead@example.com", "INST01")
	taken := fx.CreateStudent(ctx, "Taken", "taken@example.com", "INST01")
	fx.CreateTeam(ctx, "Existing", "INST01", leader.ID, taken.ID)

	t.Run("member already on a team", func(t *testing.T) {
		body := validBody("New Hope")
		body["members"].([]map[string]string)[2]["email"] = "taken@example.com"
		post(t, h, body).AssertStatus(t, http.StatusConflict)
	})

	t.Run("leader email already registered", func(t *testing.T) {
		body := validBody("Second Wind")
		body["leader_email"] = "lead@example.com"
		post(t, h, body).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("member named on another pending registration", func(t *testing.T) {
		post(t, h, validBody("First Entry")).AssertStatus(t, http.StatusCreated)

		body := validBody("Second Entry")
		body["leader_email"] = "someone@example.com"
		members := body["members"].([]map[string]string)
		members[0]["email"] = "m1@example.com" // already pending on First Entry
		members[1]["email"] = "x2@example.com"
		members[2]["email"] = "x3@example.com"
		members[3]["email"] = "x4@example.com"
		post(t, h, body).AssertStatus(t, http.StatusConflict)
	})
}
