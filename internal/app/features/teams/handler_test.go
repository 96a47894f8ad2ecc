// internal/app/features/teams/handler_test.go
package teams_test

import (
	"net/http"
	"testing"

	teamsfeature "github.com/dalemusser/hackhub/internal/app/features/teams"
	notificationstore "github.com/dalemusser/hackhub/internal/app/store/notifications"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	handler *teamsfeature.Handler
	fx      *testutil.Fixtures
	users   *userstore.Store
}

func setup(t *testing.T) *env {
	db := testutil.SetupTestDB(t)
	users := userstore.New(db)
	h := teamsfeature.NewHandler(
		teamstore.New(db),
		users,
		notify.NewSink(notificationstore.New(db)),
		zap.NewNop(),
	)
	return &env{handler: h, fx: testutil.NewFixtures(t, db), users: users}
}

func TestServeMine(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := e.fx.CreateStudent(ctx, "Lead", "lead@test.example", "INST01")
	team := e.fx.CreateTeam(ctx, "Rocket Club", "INST01", leader.ID)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/teams/mine", testutil.StudentIdentity(leader.ID, "inst01"))
	rec := testutil.NewRecorder()
	e.handler.ServeMine(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)

	var got models.Team
	rec.DecodeJSON(t, &got)
	if got.ID != team.ID {
		t.Errorf("team id: got %s, want %s", got.ID.Hex(), team.ID.Hex())
	}

	// A student with no team gets 404.
	loner := e.fx.CreateStudent(ctx, "Loner", "loner@test.example", "INST01")
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/teams/mine", testutil.StudentIdentity(loner.ID, "inst01"))
	rec = testutil.NewRecorder()
	e.handler.ServeMine(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeAvailable_ScopesToInstitute(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	home := e.fx.CreateStudent(ctx, "Home Lead", "home@test.example", "INST01")
	open := e.fx.CreateTeam(ctx, "Open Team", "INST01", home.ID)
	e.fx.CreateFullTeam(ctx, "Full Team", "INST01", 6)
	away := e.fx.CreateStudent(ctx, "Away Lead", "away@test.example", "INST02")
	e.fx.CreateTeam(ctx, "Other Campus", "INST02", away.ID)

	caller := e.fx.CreateStudent(ctx, "Caller", "caller@test.example", "INST01")
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/teams/available", testutil.StudentIdentity(caller.ID, "inst01"))
	rec := testutil.NewRecorder()
	e.handler.ServeAvailable(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)

	var got []models.Team
	rec.DecodeJSON(t, &got)
	if len(got) != 1 || got[0].ID != open.ID {
		t.Fatalf("expected only the open home-institute team, got %d teams", len(got))
	}
}

func TestServeRemoveMember(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := e.fx.CreateStudent(ctx, "Lead", "lead@test.example", "INST01")
	member := e.fx.CreateStudent(ctx, "Member", "member@test.example", "INST01")
	team := e.fx.CreateTeam(ctx, "Rocket Club", "INST01", leader.ID, member.ID)

	t.Run("only the leader may remove", func(t *testing.T) {
		req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/teams/members/"+leader.ID.Hex(), testutil.StudentIdentity(member.ID, "inst01"))
		req = testutil.WithChiURLParam(req, "userID", leader.ID.Hex())
		rec := testutil.NewRecorder()
		e.handler.ServeRemoveMember(rec.ResponseRecorder, req)
		rec.AssertStatus(t, http.StatusForbidden)
	})

	t.Run("leader cannot remove the leader slot", func(t *testing.T) {
		req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/teams/members/"+leader.ID.Hex(), testutil.StudentIdentity(leader.ID, "inst01"))
		req = testutil.WithChiURLParam(req, "userID", leader.ID.Hex())
		rec := testutil.NewRecorder()
		e.handler.ServeRemoveMember(rec.ResponseRecorder, req)
		rec.AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("leader removes a member", func(t *testing.T) {
		req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/teams/members/"+member.ID.Hex(), testutil.StudentIdentity(leader.ID, "inst01"))
		req = testutil.WithChiURLParam(req, "userID", member.ID.Hex())
		rec := testutil.NewRecorder()
		e.handler.ServeRemoveMember(rec.ResponseRecorder, req)
		rec.AssertStatus(t, http.StatusOK)

		fresh, err := e.users.GetByID(ctx, member.ID)
		if err != nil {
			t.Fatalf("reload member: %v", err)
		}
		if fresh.TeamID != nil {
			t.Error("removed member should have no team_id")
		}
		roster, err := teamstore.New(e.fx.DB()).GetByID(ctx, team.ID)
		if err != nil {
			t.Fatalf("reload team: %v", err)
		}
		if len(roster.Members) != 1 {
			t.Errorf("roster size: got %d, want 1", len(roster.Members))
		}
	})
}
