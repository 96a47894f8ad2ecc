// internal/app/store/pending/pendingstore.go
package pendingstore

import (
	"context"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("pending_registrations")}
}

func (s *Store) Insert(ctx context.Context, reg *models.PendingRegistration) error {
	now := time.Now().UTC()
	if reg.ID.IsZero() {
		reg.ID = primitive.NewObjectID()
	}
	reg.NameCI = text.Fold(reg.Name)
	reg.LeaderEmail = normalize.Email(reg.LeaderEmail)
	reg.InstituteCode = normalize.Code(reg.InstituteCode)
	for i := range reg.PendingMembers {
		reg.PendingMembers[i].Email = normalize.Email(reg.PendingMembers[i].Email)
	}
	reg.Status = models.RegistrationPending
	reg.CreatedAt = now
	reg.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, reg)
	return err
}

// GetByID returns the registration, or nil if none.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PendingRegistration, error) {
	var reg models.PendingRegistration
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&reg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ExistsTeamName reports whether a pending registration already claims
// the team name.
func (s *Store) ExistsTeamName(ctx context.Context, name string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"name_ci": text.Fold(name),
		"status":  models.RegistrationPending,
	})
	return n > 0, err
}

// FindPendingByEmails returns the pending registrations that already
// reference any of the given emails, either as leader or as a proposed
// member.
func (s *Store) FindPendingByEmails(ctx context.Context, emails []string) ([]models.PendingRegistration, error) {
	lowered := make([]string, 0, len(emails))
	for _, e := range emails {
		lowered = append(lowered, normalize.Email(e))
	}
	cur, err := s.c.Find(ctx, bson.M{
		"status": models.RegistrationPending,
		"$or": bson.A{
			bson.M{"leader_email": bson.M{"$in": lowered}},
			bson.M{"pending_members.email": bson.M{"$in": lowered}},
		},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var regs []models.PendingRegistration
	if err := cur.All(ctx, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// ListByStatus returns registrations in a status, newest first. An
// empty institute code means all institutes.
func (s *Store) ListByStatus(ctx context.Context, status, instituteCode string) ([]models.PendingRegistration, error) {
	filter := bson.M{"status": status}
	if instituteCode != "" {
		filter["institute_code"] = normalize.Code(instituteCode)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var regs []models.PendingRegistration
	if err := cur.All(ctx, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// MarkApproved flips pending -> approved. Returns false when the
// registration was not pending anymore, so a second approver (or a
// retry that lost the race) knows the flip already happened.
func (s *Store) MarkApproved(ctx context.Context, id, approvedBy primitive.ObjectID) (flipped bool, err error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RegistrationPending},
		bson.M{"$set": bson.M{
			"status":      models.RegistrationApproved,
			"approved_by": approvedBy,
			"approved_at": now,
			"updated_at":  now,
		}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// MarkRejected flips pending -> rejected with a reason. Rejection is
// terminal; the document stays for audit.
func (s *Store) MarkRejected(ctx context.Context, id, rejectedBy primitive.ObjectID, reason string) (flipped bool, err error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RegistrationPending},
		bson.M{"$set": bson.M{
			"status":           models.RegistrationRejected,
			"rejection_reason": reason,
			"approved_by":      rejectedBy,
			"updated_at":       now,
		}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// CountByStatus returns per-status totals for the dashboard. An empty
// institute code means all institutes.
func (s *Store) CountByStatus(ctx context.Context, status, instituteCode string) (int64, error) {
	filter := bson.M{"status": status}
	if instituteCode != "" {
		filter["institute_code"] = normalize.Code(instituteCode)
	}
	return s.c.CountDocuments(ctx, filter)
}
