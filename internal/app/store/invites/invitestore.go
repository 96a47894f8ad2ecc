// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("team_invites")}
}

// Create inserts a pending invite. The partial unique index on
// (to_user_id, team_id) over pending documents makes the one-pending-
// invite-per-pair rule atomic; a racing duplicate maps to
// workflow.ErrDuplicatePending.
func (s *Store) Create(ctx context.Context, inv *models.TeamInvite) error {
	now := time.Now().UTC()
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	inv.InstituteCode = normalize.Code(inv.InstituteCode)
	inv.Status = models.ProposalPending
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return workflow.ErrDuplicatePending
		}
		return err
	}
	return nil
}

// GetByID returns the invite, or nil if none.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TeamInvite, error) {
	var inv models.TeamInvite
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkAccepted flips pending -> accepted. Returns false when the invite
// was no longer pending, which covers both an earlier response and a
// lost race against one.
func (s *Store) MarkAccepted(ctx context.Context, id primitive.ObjectID) (flipped bool, err error) {
	return s.flip(ctx, id, models.ProposalAccepted)
}

// MarkRejected flips pending -> rejected.
func (s *Store) MarkRejected(ctx context.Context, id primitive.ObjectID) (flipped bool, err error) {
	return s.flip(ctx, id, models.ProposalRejected)
}

func (s *Store) flip(ctx context.Context, id primitive.ObjectID, to string) (bool, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ProposalPending},
		bson.M{"$set": bson.M{
			"status":       to,
			"responded_at": now,
			"updated_at":   now,
		}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// DeletePending removes an invite only while it is still pending, so a
// cancel cannot erase a response that already landed.
func (s *Store) DeletePending(ctx context.Context, id primitive.ObjectID) (deleted bool, err error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": models.ProposalPending})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListPendingForUser returns the invites awaiting the user's response,
// newest first.
func (s *Store) ListPendingForUser(ctx context.Context, userID primitive.ObjectID) ([]models.TeamInvite, error) {
	return s.list(ctx, bson.M{"to_user_id": userID, "status": models.ProposalPending})
}

// ListPendingForTeam returns the team's outstanding invites.
func (s *Store) ListPendingForTeam(ctx context.Context, teamID primitive.ObjectID) ([]models.TeamInvite, error) {
	return s.list(ctx, bson.M{"team_id": teamID, "status": models.ProposalPending})
}

// ListByInstitute returns all invites raised within an institute, for
// the governance invitation log. An empty code means all institutes.
func (s *Store) ListByInstitute(ctx context.Context, instituteCode string) ([]models.TeamInvite, error) {
	filter := bson.M{}
	if instituteCode != "" {
		filter["institute_code"] = normalize.Code(instituteCode)
	}
	return s.list(ctx, filter)
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.TeamInvite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var invites []models.TeamInvite
	if err := cur.All(ctx, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}
