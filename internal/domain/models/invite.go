// internal/domain/models/invite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Proposal statuses shared by invites and join requests.
const (
	ProposalPending  = "pending"
	ProposalAccepted = "accepted"
	ProposalRejected = "rejected"
)

// TeamInvite is a leader-initiated proposal to add one student.
//
// At most one pending invite may exist per (ToUserID, TeamID); the
// partial unique index on team_invites enforces that atomically.
// InstituteCode is denormalized from the team for scoped queries.
type TeamInvite struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FromUserID primitive.ObjectID `bson:"from_user_id" json:"from_user_id"`
	ToUserID   primitive.ObjectID `bson:"to_user_id" json:"to_user_id"`
	TeamID     primitive.ObjectID `bson:"team_id" json:"team_id"`

	InstituteCode string `bson:"institute_code" json:"institute_code"`
	Status        string `bson:"status" json:"status"`

	RespondedAt *time.Time `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}
