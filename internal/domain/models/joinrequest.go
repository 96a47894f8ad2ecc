// internal/domain/models/joinrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JoinRequest is a student-initiated proposal to join one team, answered
// by that team's leader. At most one pending request may exist per
// (FromUserID, ToTeamID); the partial unique index on join_requests
// enforces that atomically.
type JoinRequest struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FromUserID primitive.ObjectID `bson:"from_user_id" json:"from_user_id"`
	ToTeamID   primitive.ObjectID `bson:"to_team_id" json:"to_team_id"`

	Status string `bson:"status" json:"status"`

	RespondedAt *time.Time `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}
