// internal/domain/models/institute.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Institute is the registry entry for a participating institute.
//
// Code is the canonical identifier (upper-cased at write time); Name is
// display-only. Institutes are created or refreshed when a registration
// from that institute is approved.
type Institute struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code   string             `bson:"code" json:"code"`
	Name   string             `bson:"name" json:"name"`
	Active bool               `bson:"active" json:"active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
