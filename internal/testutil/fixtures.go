package testutil

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateInstitute creates a test institute with the given code and name.
func (f *Fixtures) CreateInstitute(ctx context.Context, code, name string) models.Institute {
	f.t.Helper()

	now := time.Now().UTC()
	inst := models.Institute{
		ID:        primitive.NewObjectID(),
		Code:      normalize.Code(code),
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("institutes").InsertOne(ctx, inst); err != nil {
		f.t.Fatalf("failed to create test institute: %v", err)
	}
	return inst
}

// CreateUser creates a test user with the given role and institute code.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role, instituteCode string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		Email:         normalize.Email(email),
		PasswordHash:  "$2a$04$test.hash.placeholder.not.a.real.credential",
		Role:          role,
		InstituteCode: normalize.Code(instituteCode),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateStudent creates a free-agent student (no team) in the institute.
func (f *Fixtures) CreateStudent(ctx context.Context, fullName, email, instituteCode string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleStudent, instituteCode)
}

// CreateSpoc creates a SPOC for the institute.
func (f *Fixtures) CreateSpoc(ctx context.Context, fullName, email, instituteCode string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleSpoc, instituteCode)
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin, "")
}

// CreateTeam creates an approved team led by leaderID with the given
// extra members. The leader is placed at Members[0] and every roster
// member's user document gets its team_id set, keeping the fixture
// consistent with what the governance pipeline produces.
func (f *Fixtures) CreateTeam(ctx context.Context, name, instituteCode string, leaderID primitive.ObjectID, memberIDs ...primitive.ObjectID) models.Team {
	f.t.Helper()

	now := time.Now().UTC()
	team := models.Team{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		LeaderID:      leaderID,
		Members:       append([]primitive.ObjectID{leaderID}, memberIDs...),
		InstituteCode: normalize.Code(instituteCode),
		Status:        models.TeamStatusApproved,
		ApprovedBy:    primitive.NewObjectID(),
		ApprovedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("teams").InsertOne(ctx, team); err != nil {
		f.t.Fatalf("failed to create test team: %v", err)
	}
	for _, id := range team.Members {
		_, err := f.db.Collection("users").UpdateByID(ctx, id,
			map[string]any{"$set": map[string]any{"team_id": team.ID}})
		if err != nil {
			f.t.Fatalf("failed to set team_id on test member: %v", err)
		}
	}
	return team
}

// CreateFullTeam creates an approved team at roster capacity, minting
// member accounts as needed.
func (f *Fixtures) CreateFullTeam(ctx context.Context, name, instituteCode string, capacity int) models.Team {
	f.t.Helper()

	leader := f.CreateStudent(ctx, "Leader "+name, fmt.Sprintf("leader.%s@test.example", primitive.NewObjectID().Hex()), instituteCode)
	members := make([]primitive.ObjectID, 0, capacity-1)
	for i := 1; i < capacity; i++ {
		m := f.CreateStudent(ctx,
			fmt.Sprintf("Member %d %s", i, name),
			fmt.Sprintf("member%d.%s@test.example", i, primitive.NewObjectID().Hex()),
			instituteCode)
		members = append(members, m.ID)
	}
	return f.CreateTeam(ctx, name, instituteCode, leader.ID, members...)
}

// CreatePendingRegistration stages a registration awaiting review.
func (f *Fixtures) CreatePendingRegistration(ctx context.Context, teamName, leaderEmail, instituteCode string, memberEmails ...string) models.PendingRegistration {
	f.t.Helper()

	now := time.Now().UTC()
	pending := make([]models.PendingMember, 0, len(memberEmails))
	for i, email := range memberEmails {
		pending = append(pending, models.PendingMember{
			Name:  fmt.Sprintf("Candidate %d", i+1),
			Email: email,
		})
	}
	reg := models.PendingRegistration{
		ID:                 primitive.NewObjectID(),
		Name:               teamName,
		NameCI:             text.Fold(teamName),
		LeaderName:         "Test Leader",
		LeaderEmail:        leaderEmail,
		LeaderPasswordHash: "$2a$04$test.hash.placeholder.not.a.real.credential",
		InstituteCode:      normalize.Code(instituteCode),
		InstituteName:      "Test Institute",
		MentorName:         "Test Mentor",
		MentorEmail:        fmt.Sprintf("mentor.%s@test.example", primitive.NewObjectID().Hex()),
		SpocName:           "Test Spoc",
		SpocEmail:          fmt.Sprintf("spoc.%s@test.example", primitive.NewObjectID().Hex()),
		ConsentFileRef:     "consent/test.pdf",
		PendingMembers:     pending,
		Status:             models.RegistrationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := f.db.Collection("pending_registrations").InsertOne(ctx, reg); err != nil {
		f.t.Fatalf("failed to create test pending registration: %v", err)
	}
	return reg
}

// CreateInvite stages a pending invite from a team to a student.
func (f *Fixtures) CreateInvite(ctx context.Context, fromUserID, toUserID, teamID primitive.ObjectID, instituteCode string) models.TeamInvite {
	f.t.Helper()

	now := time.Now().UTC()
	inv := models.TeamInvite{
		ID:            primitive.NewObjectID(),
		FromUserID:    fromUserID,
		ToUserID:      toUserID,
		TeamID:        teamID,
		InstituteCode: normalize.Code(instituteCode),
		Status:        models.ProposalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("team_invites").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invite: %v", err)
	}
	return inv
}

// CreateJoinRequest stages a pending join request from a student to a team.
func (f *Fixtures) CreateJoinRequest(ctx context.Context, fromUserID, toTeamID primitive.ObjectID) models.JoinRequest {
	f.t.Helper()

	now := time.Now().UTC()
	req := models.JoinRequest{
		ID:         primitive.NewObjectID(),
		FromUserID: fromUserID,
		ToTeamID:   toTeamID,
		Status:     models.ProposalPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("join_requests").InsertOne(ctx, req); err != nil {
		f.t.Fatalf("failed to create test join request: %v", err)
	}
	return req
}
