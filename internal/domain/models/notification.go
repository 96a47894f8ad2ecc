// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification recipient selectors.
const (
	RecipientUsers = "users" // explicit Recipients list
	RecipientSpocs = "spocs" // every SPOC of InstituteCode
	RecipientAll   = "all"   // broadcast
)

// Notification is an append-only, human-readable event record. Creation
// is best-effort: a failed insert is logged and swallowed, never
// surfaced to the workflow that triggered it.
type Notification struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title   string             `bson:"title" json:"title"`
	Message string             `bson:"message" json:"message"`
	Type    string             `bson:"type" json:"type"` // info | success | warning

	RecipientType string               `bson:"recipient_type" json:"recipient_type"`
	Recipients    []primitive.ObjectID `bson:"recipients,omitempty" json:"recipients,omitempty"`
	InstituteCode string               `bson:"institute_code,omitempty" json:"institute_code,omitempty"`

	TriggeredBy primitive.ObjectID `bson:"triggered_by" json:"triggered_by"`

	TeamID        *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`
	InviteID      *primitive.ObjectID `bson:"invite_id,omitempty" json:"invite_id,omitempty"`
	JoinRequestID *primitive.ObjectID `bson:"join_request_id,omitempty" json:"join_request_id,omitempty"`

	ReadBy []primitive.ObjectID `bson:"read_by,omitempty" json:"read_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
