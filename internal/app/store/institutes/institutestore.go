// internal/app/store/institutes/institutestore.go
package institutestore

import (
	"context"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("institutes")}
}

// GetByCode returns the institute for a canonical code, or nil if none.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.Institute, error) {
	var inst models.Institute
	err := s.c.FindOne(ctx, bson.M{"code": normalize.Code(code)}).Decode(&inst)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// Upsert creates or refreshes the registry entry for a code. Called
// during governance approval so every approved team's institute exists
// and is active. The code is normalized before writing.
func (s *Store) Upsert(ctx context.Context, code, name string) (*models.Institute, error) {
	code = normalize.Code(code)
	now := time.Now().UTC()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var inst models.Institute
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"code": code},
		bson.M{
			"$set": bson.M{
				"name":       normalize.Name(name),
				"active":     true,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{
				"code":       code,
				"created_at": now,
			},
		}, opts).Decode(&inst)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// SetActive toggles the activation flag. Returns false if no institute
// has that code.
func (s *Store) SetActive(ctx context.Context, code string, active bool) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"code": normalize.Code(code)},
		bson.M{"$set": bson.M{"active": active, "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
