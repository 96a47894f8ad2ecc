// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleStudent = "student"
	RoleSpoc    = "spoc"
	RoleMentor  = "mentor"
	RoleJudge   = "judge"
	RoleAdmin   = "admin"
)

// User represents every account kind: students, SPOCs, mentors, judges,
// and admins.
//
// NOTE:
//   - TeamID is set if and only if a student is leader or member of
//     exactly one approved team. Non-students never carry a TeamID.
//   - PasswordHash is a bcrypt hash; plaintext is never stored.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	Email        string             `bson:"email" json:"email"` // lowercased
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`

	InstituteCode string `bson:"institute_code" json:"institute_code"`
	InstituteName string `bson:"institute_name,omitempty" json:"institute_name,omitempty"`

	// District/State are only populated for SPOC accounts.
	District string `bson:"district,omitempty" json:"district,omitempty"`
	State    string `bson:"state,omitempty" json:"state,omitempty"`

	TeamID *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`

	// AssignedTeams lists the teams a mentor or judge is assigned to
	// evaluate. Empty for every other role.
	AssignedTeams []primitive.ObjectID `bson:"assigned_teams,omitempty" json:"assigned_teams,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
