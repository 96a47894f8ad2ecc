package teamstore_test

import (
	"sync"
	"testing"

	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/indexes"
	"github.com/dalemusser/hackhub/internal/app/system/roster"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Insert_DuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	team := models.Team{
		Name:          "Rocket Crew",
		LeaderID:      primitive.NewObjectID(),
		Members:       []primitive.ObjectID{primitive.NewObjectID()},
		InstituteCode: "inst01",
	}
	if err := store.Insert(ctx, &team); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if team.InstituteCode != "INST01" {
		t.Errorf("institute code not canonicalized: got %q", team.InstituteCode)
	}

	// Differ only in case; name_ci collides.
	dup := models.Team{
		Name:          "rocket crew",
		LeaderID:      primitive.NewObjectID(),
		Members:       []primitive.ObjectID{primitive.NewObjectID()},
		InstituteCode: "INST02",
	}
	if err := store.Insert(ctx, &dup); err != teamstore.ErrDuplicateName {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestStore_AddMember_FillsToCapacity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	team := fixtures.CreateTeam(ctx, "Half Full", "INST01", leader.ID)

	for i := 1; i < roster.Capacity; i++ {
		added, err := store.AddMember(ctx, team.ID, primitive.NewObjectID())
		if err != nil {
			t.Fatalf("AddMember %d failed: %v", i, err)
		}
		if !added {
			t.Fatalf("AddMember %d: expected append to succeed", i)
		}
	}

	// Seventh head must bounce off the size guard.
	added, err := store.AddMember(ctx, team.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("AddMember over capacity failed: %v", err)
	}
	if added {
		t.Error("expected append past capacity to be refused")
	}

	got, err := store.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Members) != roster.Capacity {
		t.Errorf("roster size: got %d, want %d", len(got.Members), roster.Capacity)
	}
}

func TestStore_AddMember_AlreadyOnRoster(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	member := fixtures.CreateStudent(ctx, "Member", "member@test.example", "INST01")
	team := fixtures.CreateTeam(ctx, "No Repeats", "INST01", leader.ID, member.ID)

	added, err := store.AddMember(ctx, team.ID, member.ID)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if added {
		t.Error("expected re-append of an existing member to be refused")
	}
}

func TestStore_AddMember_LastSlotRace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// One slot left.
	team := fixtures.CreateFullTeam(ctx, "Nearly Full", "INST01", roster.Capacity-1)

	const contenders = 8
	var wg sync.WaitGroup
	wins := make(chan bool, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := store.AddMember(ctx, team.ID, primitive.NewObjectID())
			if err != nil {
				t.Errorf("AddMember failed: %v", err)
				return
			}
			wins <- added
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("last-slot winners: got %d, want exactly 1", winners)
	}

	got, err := store.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Members) != roster.Capacity {
		t.Errorf("roster size after race: got %d, want %d", len(got.Members), roster.Capacity)
	}
}

func TestStore_RemoveMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	member := fixtures.CreateStudent(ctx, "Member", "member@test.example", "INST01")
	team := fixtures.CreateTeam(ctx, "Shrinking", "INST01", leader.ID, member.ID)

	removed, err := store.RemoveMember(ctx, team.ID, member.ID)
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if !removed {
		t.Error("expected member removal to succeed")
	}

	// The leader slot must not be removable.
	removed, err = store.RemoveMember(ctx, team.ID, leader.ID)
	if err != nil {
		t.Fatalf("RemoveMember(leader) failed: %v", err)
	}
	if removed {
		t.Error("expected leader removal to be refused")
	}
}

func TestStore_FindByMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	leader := fixtures.CreateStudent(ctx, "Leader", "lead@test.example", "INST01")
	member := fixtures.CreateStudent(ctx, "Member", "member@test.example", "INST01")
	team := fixtures.CreateTeam(ctx, "Findable", "INST01", leader.ID, member.ID)

	got, err := store.FindByMember(ctx, member.ID)
	if err != nil {
		t.Fatalf("FindByMember failed: %v", err)
	}
	if got == nil || got.ID != team.ID {
		t.Errorf("FindByMember: got %v, want team %s", got, team.ID.Hex())
	}

	none, err := store.FindByMember(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("FindByMember(stranger) failed: %v", err)
	}
	if none != nil {
		t.Error("expected nil for a user on no team")
	}
}

func TestStore_ListAvailable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateFullTeam(ctx, "Full House", "INST01", roster.Capacity)
	open := fixtures.CreateFullTeam(ctx, "Open Seats", "INST01", 2)
	fixtures.CreateFullTeam(ctx, "Other Campus", "INST02", 2)

	got, err := store.ListAvailable(ctx, "inst01")
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("available teams: got %d, want 1", len(got))
	}
	if got[0].ID != open.ID {
		t.Errorf("available team: got %s, want %s", got[0].Name, open.Name)
	}
}
