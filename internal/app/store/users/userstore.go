// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
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
	return &Store{c: db.Collection("users")}
}

// GetByID returns the user, or nil if none.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user for a normalized email, or nil if none.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// NewAccount describes an account to provision if none exists yet.
type NewAccount struct {
	FullName      string
	Email         string
	Phone         string
	Role          string
	InstituteCode string
	InstituteName string
	District      string
	State         string
	PasswordHash  string
}

// LookupOrCreate resolves an account by email, inserting a fresh one if
// none exists. It reports created=true only when this call inserted the
// document. An existing account is returned untouched; in particular
// its password hash and role are never overwritten, which is what makes
// a retried governance approval converge instead of duplicating.
//
// A concurrent duplicate insert loses against the unique email index
// and is resolved by re-reading the winner.
func (s *Store) LookupOrCreate(ctx context.Context, acct NewAccount) (user *models.User, created bool, err error) {
	email := normalize.Email(acct.Email)
	if existing, err := s.GetByEmail(ctx, email); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	u := models.User{
		ID:            primitive.NewObjectID(),
		FullName:      normalize.Name(acct.FullName),
		Email:         email,
		Phone:         acct.Phone,
		Role:          normalize.Role(acct.Role),
		InstituteCode: normalize.Code(acct.InstituteCode),
		InstituteName: normalize.Name(acct.InstituteName),
		District:      acct.District,
		State:         acct.State,
		PasswordHash:  acct.PasswordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			existing, gerr := s.GetByEmail(ctx, email)
			if gerr != nil {
				return nil, false, gerr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return &u, true, nil
}

// ClaimTeam atomically sets the user's team reference, but only when the
// user is a student with no team. Exactly one of two racing claims for
// the same student succeeds; the loser sees claimed=false.
func (s *Store) ClaimTeam(ctx context.Context, userID, teamID primitive.ObjectID) (claimed bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":     userID,
			"role":    models.RoleStudent,
			"team_id": bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{"team_id": teamID, "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ReleaseTeam clears the user's team reference, but only if it still
// points at the given team. Used both when a member is removed and as
// the compensation step when a roster append loses the capacity race.
func (s *Store) ReleaseTeam(ctx context.Context, userID, teamID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "team_id": teamID},
		bson.M{
			"$unset": bson.M{"team_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}

// FindTeamedByEmails returns the users among the given emails that
// already carry a team reference. Governance uses it as the pre-flight
// availability screen before provisioning anything.
func (s *Store) FindTeamedByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	norm := make([]string, 0, len(emails))
	for _, e := range emails {
		norm = append(norm, normalize.Email(e))
	}
	cur, err := s.c.Find(ctx, bson.M{
		"email":   bson.M{"$in": norm},
		"team_id": bson.M{"$exists": true},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListByRoleAndInstitute returns users of one role, sorted by name. An
// empty institute code means all institutes.
func (s *Store) ListByRoleAndInstitute(ctx context.Context, role, instituteCode string) ([]models.User, error) {
	filter := bson.M{"role": normalize.Role(role)}
	if instituteCode != "" {
		filter["institute_code"] = normalize.Code(instituteCode)
	}
	opts := options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CountByRoleAndInstitute returns the number of users of one role. An
// empty institute code means all institutes.
func (s *Store) CountByRoleAndInstitute(ctx context.Context, role, instituteCode string) (int64, error) {
	filter := bson.M{"role": normalize.Role(role)}
	if instituteCode != "" {
		filter["institute_code"] = normalize.Code(instituteCode)
	}
	return s.c.CountDocuments(ctx, filter)
}
