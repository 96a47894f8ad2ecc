package invites_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	invitestore "github.com/dalemusser/hackhub/internal/app/store/invites"
	notificationstore "github.com/dalemusser/hackhub/internal/app/store/notifications"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/indexes"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	"github.com/dalemusser/hackhub/internal/app/system/roster"
	"github.com/dalemusser/hackhub/internal/app/workflow/invites"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type env struct {
	db       *mongo.Database
	svc      *invites.Service
	invites  *invitestore.Store
	users    *userstore.Store
	teams    *teamstore.Store
	fixtures *testutil.Fixtures
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	inv := invitestore.New(db)
	users := userstore.New(db)
	teams := teamstore.New(db)
	sink := notify.NewSink(notificationstore.New(db))
	return &env{
		db:       db,
		svc:      invites.NewService(inv, users, teams, sink),
		invites:  inv,
		users:    users,
		teams:    teams,
		fixtures: testutil.NewFixtures(t, db),
	}
}

func TestSend_Validations(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := e.fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	member := e.fixtures.CreateStudent(ctx, "Member", "mem@test.example", "INST01")
	e.fixtures.CreateTeam(ctx, "Senders", "INST01", leader.ID, member.ID)
	free := e.fixtures.CreateStudent(ctx, "Free", "free@test.example", "INST01")
	outsider := e.fixtures.CreateStudent(ctx, "Outsider", "out@test.example", "INST02")

	// Only the leader may send.
	if _, err := e.svc.Send(ctx, member.ID, free.ID); err == nil || !errors.Is(err, workflow.ErrNotAuthorized) {
		t.Errorf("member send: got %v, want ErrNotAuthorized", err)
	}
	// Cross-institute recipient.
	if _, err := e.svc.Send(ctx, leader.ID, outsider.ID); !errors.Is(err, workflow.ErrCrossInstitute) {
		t.Errorf("cross-institute: got %v, want ErrCrossInstitute", err)
	}
	// Already-teamed recipient.
	taken := e.fixtures.CreateStudent(ctx, "Taken", "taken@test.example", "INST01")
	e.fixtures.CreateTeam(ctx, "Claimers", "INST01", taken.ID)
	if _, err := e.svc.Send(ctx, leader.ID, taken.ID); !errors.Is(err, workflow.ErrAlreadyTeamed) {
		t.Errorf("teamed recipient: got %v, want ErrAlreadyTeamed", err)
	}

	// Happy path, then a duplicate while the first is pending.
	if _, err := e.svc.Send(ctx, leader.ID, free.ID); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := e.svc.Send(ctx, leader.ID, free.ID); !errors.Is(err, workflow.ErrDuplicatePending) {
		t.Errorf("duplicate send: got %v, want ErrDuplicatePending", err)
	}
}

func TestSend_FullTeam(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	team := e.fixtures.CreateFullTeam(ctx, "Packed", "INST01", roster.Capacity)
	free := e.fixtures.CreateStudent(ctx, "Free", "free@test.example", "INST01")

	if _, err := e.svc.Send(ctx, team.LeaderID, free.ID); !errors.Is(err, workflow.ErrTeamFull) {
		t.Errorf("full-team send: got %v, want ErrTeamFull", err)
	}
}

func TestAccept_HappyPath(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := e.fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	team := e.fixtures.CreateTeam(ctx, "Welcomers", "INST01", leader.ID)
	joiner := e.fixtures.CreateStudent(ctx, "Joiner", "join@test.example", "INST01")
	inv := e.fixtures.CreateInvite(ctx, leader.ID, joiner.ID, team.ID, "INST01")

	if err := e.svc.Accept(ctx, inv.ID, joiner.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	got, err := e.teams.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team failed: %v", err)
	}
	if len(got.Members) != 2 {
		t.Errorf("roster size: got %d, want 2", len(got.Members))
	}
	u, err := e.users.GetByID(ctx, joiner.ID)
	if err != nil {
		t.Fatalf("reload joiner failed: %v", err)
	}
	if u.TeamID == nil || *u.TeamID != team.ID {
		t.Error("joiner team_id not claimed")
	}
	stored, err := e.invites.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("reload invite failed: %v", err)
	}
	if stored.Status != models.ProposalAccepted {
		t.Errorf("invite status: got %q, want accepted", stored.Status)
	}
}

func TestAccept_OnlyRecipient(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := e.fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	team := e.fixtures.CreateTeam(ctx, "Private", "INST01", leader.ID)
	joiner := e.fixtures.CreateStudent(ctx, "Joiner", "join@test.example", "INST01")
	imposter := e.fixtures.CreateStudent(ctx, "Imposter", "imp@test.example", "INST01")
	inv := e.fixtures.CreateInvite(ctx, leader.ID, joiner.ID, team.ID, "INST01")

	if err := e.svc.Accept(ctx, inv.ID, imposter.ID); err != workflow.ErrNotAuthorized {
		t.Errorf("imposter accept: got %v, want ErrNotAuthorized", err)
	}
}

func TestAccept_AlreadyTeamedKeepsInvitePending(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := e.fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	team := e.fixtures.CreateTeam(ctx, "Suitors", "INST01", leader.ID)
	joiner := e.fixtures.CreateStudent(ctx, "Popular", "pop@test.example", "INST01")
	inv := e.fixtures.CreateInvite(ctx, leader.ID, joiner.ID, team.ID, "INST01")

	// The student joins another team before responding.
	otherLeader := e.fixtures.CreateStudent(ctx, "Rival", "rival@test.example", "INST01")
	other := e.fixtures.CreateTeam(ctx, "Rivals", "INST01", otherLeader.ID)
	otherInv := e.fixtures.CreateInvite(ctx, otherLeader.ID, joiner.ID, other.ID, "INST01")
	if err := e.svc.Accept(ctx, otherInv.ID, joiner.ID); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	if err := e.svc.Accept(ctx, inv.ID, joiner.ID); !errors.Is(err, workflow.ErrAlreadyTeamed) {
		t.Fatalf("second accept: got %v, want ErrAlreadyTeamed", err)
	}

	// The losing invite must remain open for later.
	stored, err := e.invites.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("reload invite failed: %v", err)
	}
	if stored.Status != models.ProposalPending {
		t.Errorf("invite status: got %q, want pending", stored.Status)
	}
}

// Several teams accept the same student at once; the single-membership
// claim lets exactly one of them win.
func TestAccept_ConcurrentSameStudent(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	joiner := e.fixtures.CreateStudent(ctx, "Contested", "contested@test.example", "INST01")

	const teams = 5
	invs := make([]models.TeamInvite, 0, teams)
	for i := 0; i < teams; i++ {
		leader := e.fixtures.CreateStudent(ctx, "Leader",
			fmt.Sprintf("lead%d@test.example", i), "INST01")
		team := e.fixtures.CreateTeam(ctx, fmt.Sprintf("Team %d", i), "INST01", leader.ID)
		invs = append(invs, e.fixtures.CreateInvite(ctx, leader.ID, joiner.ID, team.ID, "INST01"))
	}

	var wg sync.WaitGroup
	outcomes := make(chan error, teams)
	for _, inv := range invs {
		wg.Add(1)
		go func(invID primitive.ObjectID) {
			defer wg.Done()
			outcomes <- e.svc.Accept(ctx, invID, joiner.ID)
		}(inv.ID)
	}
	wg.Wait()
	close(outcomes)

	wins := 0
	for err := range outcomes {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, workflow.ErrAlreadyTeamed):
		default:
			t.Errorf("unexpected accept outcome: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("accept winners: got %d, want exactly 1", wins)
	}

	u, err := e.users.GetByID(ctx, joiner.ID)
	if err != nil {
		t.Fatalf("reload joiner failed: %v", err)
	}
	if u.TeamID == nil {
		t.Error("winner's claim missing")
	}
}

// Six students race for a team's final seat; the capacity-gated append
// lets exactly one through, and losers keep no membership claim.
func TestAccept_ConcurrentLastSlot(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	team := e.fixtures.CreateFullTeam(ctx, "One Seat", "INST01", roster.Capacity-1)

	type pair struct {
		invID    primitive.ObjectID
		joinerID primitive.ObjectID
	}
	const contenders = 6
	pairs := make([]pair, 0, contenders)
	for i := 0; i < contenders; i++ {
		joiner := e.fixtures.CreateStudent(ctx, "Contender",
			fmt.Sprintf("cont%d@test.example", i), "INST01")
		inv := e.fixtures.CreateInvite(ctx, team.LeaderID, joiner.ID, team.ID, "INST01")
		pairs = append(pairs, pair{invID: inv.ID, joinerID: joiner.ID})
	}

	var wg sync.WaitGroup
	outcomes := make(chan error, contenders)
	for _, p := range pairs {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			outcomes <- e.svc.Accept(ctx, p.invID, p.joinerID)
		}(p)
	}
	wg.Wait()
	close(outcomes)

	wins := 0
	for err := range outcomes {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, workflow.ErrTeamFull):
		default:
			t.Errorf("unexpected accept outcome: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("last-slot winners: got %d, want exactly 1", wins)
	}

	got, err := e.teams.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team failed: %v", err)
	}
	if len(got.Members) != roster.Capacity {
		t.Errorf("roster size: got %d, want %d", len(got.Members), roster.Capacity)
	}

	// Every loser must have had their claim released.
	for _, p := range pairs {
		u, err := e.users.GetByID(ctx, p.joinerID)
		if err != nil {
			t.Fatalf("reload contender failed: %v", err)
		}
		onRoster := false
		for _, id := range got.Members {
			if id == p.joinerID {
				onRoster = true
				break
			}
		}
		if onRoster != (u.TeamID != nil && *u.TeamID == team.ID) {
			t.Errorf("claim/roster mismatch for %s", u.Email)
		}
	}
}

func TestRejectAndCancel(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := e.fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	team := e.fixtures.CreateTeam(ctx, "Choosy", "INST01", leader.ID)
	joiner := e.fixtures.CreateStudent(ctx, "Joiner", "join@test.example", "INST01")

	// Reject: recipient only, terminal.
	inv := e.fixtures.CreateInvite(ctx, leader.ID, joiner.ID, team.ID, "INST01")
	if err := e.svc.Reject(ctx, inv.ID, leader.ID); err != workflow.ErrNotAuthorized {
		t.Errorf("sender rejecting own invite: got %v, want ErrNotAuthorized", err)
	}
	if err := e.svc.Reject(ctx, inv.ID, joiner.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if err := e.svc.Reject(ctx, inv.ID, joiner.ID); err != workflow.ErrNotPending {
		t.Errorf("re-reject: got %v, want ErrNotPending", err)
	}

	// Cancel: sender only, pending only.
	inv2 := e.fixtures.CreateInvite(ctx, leader.ID, joiner.ID, team.ID, "INST01")
	if err := e.svc.Cancel(ctx, inv2.ID, joiner.ID); err != workflow.ErrNotAuthorized {
		t.Errorf("recipient cancelling: got %v, want ErrNotAuthorized", err)
	}
	if err := e.svc.Cancel(ctx, inv2.ID, leader.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got, _ := e.invites.GetByID(ctx, inv2.ID); got != nil {
		t.Error("cancelled invite still present")
	}

	// Cancel loses to a response that already landed.
	inv3 := e.fixtures.CreateInvite(ctx, leader.ID, joiner.ID, team.ID, "INST01")
	if err := e.svc.Accept(ctx, inv3.ID, joiner.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := e.svc.Cancel(ctx, inv3.ID, leader.ID); err != workflow.ErrNotPending {
		t.Errorf("cancel after accept: got %v, want ErrNotPending", err)
	}
}
