// internal/app/store/teams/teamstore.go
package teamstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/app/system/roster"
	"github.com/dalemusser/hackhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateName is returned when a team name is already taken.
var ErrDuplicateName = errors.New("team name already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("teams")}
}

// Insert creates an approved team. The unique index on name_ci makes
// creation race-safe; a duplicate maps to ErrDuplicateName.
func (s *Store) Insert(ctx context.Context, team *models.Team) error {
	now := time.Now().UTC()
	if team.ID.IsZero() {
		team.ID = primitive.NewObjectID()
	}
	team.NameCI = text.Fold(team.Name)
	team.InstituteCode = normalize.Code(team.InstituteCode)
	team.Status = models.TeamStatusApproved
	team.CreatedAt = now
	team.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, team); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

// GetByID returns the team, or nil if none.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByName returns the team with a given (case-folded) name, or nil.
func (s *Store) GetByName(ctx context.Context, name string) (*models.Team, error) {
	var t models.Team
	err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(name)}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByMember returns the team whose roster contains the user, or nil.
func (s *Store) FindByMember(ctx context.Context, userID primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	err := s.c.FindOne(ctx, bson.M{"members": userID}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AddMember appends a user to the roster as one conditional update: the
// push happens only if the team still has room and the user is not
// already on it. Exactly one of N racing appends for the last slot
// succeeds; losers see added=false and classify the reason themselves.
func (s *Store) AddMember(ctx context.Context, teamID, userID primitive.ObjectID) (added bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":     teamID,
			"status":  models.TeamStatusApproved,
			"members": bson.M{"$ne": userID},
			"$expr":   bson.M{"$lt": bson.A{bson.M{"$size": "$members"}, roster.Capacity}},
		},
		bson.M{
			"$push": bson.M{"members": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveMember pulls a user from the roster. The leader slot can never
// be pulled. Returns false when nothing was removed.
func (s *Store) RemoveMember(ctx context.Context, teamID, userID primitive.ObjectID) (removed bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":       teamID,
			"leader_id": bson.M{"$ne": userID},
		},
		bson.M{
			"$pull": bson.M{"members": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SetProblem records the team's selected problem statement.
func (s *Store) SetProblem(ctx context.Context, teamID, problemID primitive.ObjectID) (updated bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID, "status": models.TeamStatusApproved},
		bson.M{"$set": bson.M{"problem_id": problemID, "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Delete removes a team document. Only the governance pipeline calls
// this, as the compensation step of a failed approval.
func (s *Store) Delete(ctx context.Context, teamID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": teamID})
	return err
}

// ListAvailable returns the institute's teams that still have room.
func (s *Store) ListAvailable(ctx context.Context, instituteCode string) ([]models.Team, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"institute_code": normalize.Code(instituteCode),
		"status":         models.TeamStatusApproved,
		"$expr":          bson.M{"$lt": bson.A{bson.M{"$size": "$members"}, roster.Capacity}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var teams []models.Team
	if err := cur.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// ListByInstitute returns teams newest first. An empty institute code
// means all institutes.
func (s *Store) ListByInstitute(ctx context.Context, instituteCode string) ([]models.Team, error) {
	filter := bson.M{}
	if instituteCode != "" {
		filter["institute_code"] = normalize.Code(instituteCode)
	}
	opts := options.Find().SetSort(bson.D{{Key: "approved_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var teams []models.Team
	if err := cur.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// CountByInstitute returns the number of teams. An empty institute
// code means all institutes.
func (s *Store) CountByInstitute(ctx context.Context, instituteCode string) (int64, error) {
	filter := bson.M{}
	if instituteCode != "" {
		filter["institute_code"] = normalize.Code(instituteCode)
	}
	return s.c.CountDocuments(ctx, filter)
}
