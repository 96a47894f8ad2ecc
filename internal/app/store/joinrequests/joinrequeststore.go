// internal/app/store/joinrequests/joinrequeststore.go
package joinrequeststore

import (
	"context"
	"time"

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
	return &Store{c: db.Collection("join_requests")}
}

// Create inserts a pending join request. The partial unique index on
// (from_user_id, to_team_id) over pending documents enforces the
// one-pending-request-per-pair rule; a racing duplicate maps to
// workflow.ErrDuplicatePending.
func (s *Store) Create(ctx context.Context, req *models.JoinRequest) error {
	now := time.Now().UTC()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	req.Status = models.ProposalPending
	req.CreatedAt = now
	req.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return workflow.ErrDuplicatePending
		}
		return err
	}
	return nil
}

// GetByID returns the request, or nil if none.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.JoinRequest, error) {
	var req models.JoinRequest
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkAccepted flips pending -> accepted. False means the request was
// not pending anymore.
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

// ListPendingForTeam returns the requests awaiting the team leader's
// response, newest first.
func (s *Store) ListPendingForTeam(ctx context.Context, teamID primitive.ObjectID) ([]models.JoinRequest, error) {
	return s.list(ctx, bson.M{"to_team_id": teamID, "status": models.ProposalPending})
}

// ListForUser returns everything the user has requested, newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.JoinRequest, error) {
	return s.list(ctx, bson.M{"from_user_id": userID})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.JoinRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reqs []models.JoinRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}
