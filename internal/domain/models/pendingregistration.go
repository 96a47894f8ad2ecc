// internal/domain/models/pendingregistration.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PendingRegistration statuses.
const (
	RegistrationPending  = "pending"
	RegistrationApproved = "approved"
	RegistrationRejected = "rejected"
)

// PendingMember is a candidate member named on a registration. No account
// exists for them until the registration is approved.
type PendingMember struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

// PendingRegistration is a staged team application awaiting governance
// review. It holds everything needed to provision the team and its
// accounts on approval; no User or Team documents exist before that.
//
// LeaderPasswordHash is hashed at intake; plaintext never persists.
// Approval and rejection flip Status terminally and keep the document
// for audit.
type PendingRegistration struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"`

	LeaderName         string `bson:"leader_name" json:"leader_name"`
	LeaderEmail        string `bson:"leader_email" json:"leader_email"`
	LeaderPhone        string `bson:"leader_phone,omitempty" json:"leader_phone,omitempty"`
	LeaderPasswordHash string `bson:"leader_password_hash" json:"-"`

	InstituteCode string `bson:"institute_code" json:"institute_code"`
	InstituteName string `bson:"institute_name" json:"institute_name"`

	MentorName  string `bson:"mentor_name" json:"mentor_name"`
	MentorEmail string `bson:"mentor_email" json:"mentor_email"`

	SpocName     string `bson:"spoc_name" json:"spoc_name"`
	SpocEmail    string `bson:"spoc_email" json:"spoc_email"`
	SpocDistrict string `bson:"spoc_district,omitempty" json:"spoc_district,omitempty"`
	SpocState    string `bson:"spoc_state,omitempty" json:"spoc_state,omitempty"`

	ConsentFileRef string              `bson:"consent_file_ref" json:"consent_file_ref"`
	ProblemID      *primitive.ObjectID `bson:"problem_id,omitempty" json:"problem_id,omitempty"`

	PendingMembers []PendingMember `bson:"pending_members" json:"pending_members"`

	Status          string `bson:"status" json:"status"`
	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	ApprovedBy *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
