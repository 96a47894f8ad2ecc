// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

func (s *Store) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.InstituteCode = normalize.Code(n.InstituteCode)
	n.CreatedAt = time.Now().UTC()
	_, err := s.c.InsertOne(ctx, n)
	return err
}

// ListForUser returns the notifications visible to a user, newest
// first: ones addressed to them directly, broadcasts, and, when the
// user is a SPOC, their institute's spoc-targeted ones.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, role, instituteCode string, limit int64) ([]models.Notification, error) {
	selectors := bson.A{
		bson.M{"recipient_type": models.RecipientUsers, "recipients": userID},
		bson.M{"recipient_type": models.RecipientAll},
	}
	if role == models.RoleSpoc {
		selectors = append(selectors, bson.M{
			"recipient_type": models.RecipientSpocs,
			"institute_code": normalize.Code(instituteCode),
		})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"$or": selectors}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead records that a user has seen a notification. $addToSet keeps
// repeated marks idempotent.
func (s *Store) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"read_by": userID}})
	return err
}
