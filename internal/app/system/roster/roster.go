// Package roster holds the single copy of the membership invariants:
// the capacity ceiling, institute scoping, and single-team membership.
//
// Both the invite and join-request workflows, and governance team
// creation, call through here; the rules are never duplicated. These
// checks are advisory screens; the store's conditional writes are what
// make them hold under concurrency.
package roster

import (
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
)

// Capacity is the maximum head-count of a team. The leader is always
// Members[0], so the ceiling applies to len(Members) directly.
const Capacity = 6

// HasRoom reports whether the team can take one more member.
func HasRoom(team *models.Team) bool {
	return team != nil && len(team.Members) < Capacity
}

// Eligible screens a candidate for joining a team. It returns nil when
// every invariant holds, otherwise the matching workflow error:
//
//	ErrValidation     - candidate is not a student
//	ErrCrossInstitute - institute codes differ
//	ErrAlreadyTeamed  - candidate already belongs to a team
//	ErrTeamFull       - team is at capacity
func Eligible(team *models.Team, candidate *models.User) error {
	if team == nil || candidate == nil {
		return workflow.ErrNotFound
	}
	if candidate.Role != models.RoleStudent {
		return workflow.ErrValidation
	}
	if normalize.Code(candidate.InstituteCode) != normalize.Code(team.InstituteCode) {
		return workflow.ErrCrossInstitute
	}
	if candidate.TeamID != nil {
		return workflow.ErrAlreadyTeamed
	}
	if !HasRoom(team) {
		return workflow.ErrTeamFull
	}
	return nil
}
