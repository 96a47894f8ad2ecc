// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Team is an approved competition team.
//
// Teams only exist in the approved state: they are created whole by the
// governance pipeline when a pending registration is approved. The leader
// is always Members[0], so head-count == len(Members) and the roster
// ceiling applies to the array length directly.
type Team struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"`

	LeaderID primitive.ObjectID   `bson:"leader_id" json:"leader_id"`
	Members  []primitive.ObjectID `bson:"members" json:"members"`

	InstituteCode string `bson:"institute_code" json:"institute_code"`
	InstituteName string `bson:"institute_name" json:"institute_name"`

	MentorID *primitive.ObjectID `bson:"mentor_id,omitempty" json:"mentor_id,omitempty"`
	SpocID   *primitive.ObjectID `bson:"spoc_id,omitempty" json:"spoc_id,omitempty"`

	ProblemID      *primitive.ObjectID `bson:"problem_id,omitempty" json:"problem_id,omitempty"`
	ConsentFileRef string              `bson:"consent_file_ref,omitempty" json:"consent_file_ref,omitempty"`

	Status     string             `bson:"status" json:"status"` // always "approved"
	ApprovedBy primitive.ObjectID `bson:"approved_by" json:"approved_by"`
	ApprovedAt time.Time          `bson:"approved_at" json:"approved_at"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// TeamStatusApproved is the only status the governance pipeline writes.
const TeamStatusApproved = "approved"
