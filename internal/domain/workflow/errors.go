// internal/domain/workflow/errors.go

// Package workflow defines the business-error taxonomy shared by the
// governance and membership workflows.
//
// Every precondition violation is recovered into one of these sentinels
// and returned to the caller; store-level conditional-write failures
// (race losers) are mapped to the same values, so a caller cannot tell a
// lost race from an ordinary precondition failure. The messages are the
// stable user-facing text; raw store errors are never surfaced.
package workflow

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized to perform this action")

	// Terminal-state re-entry.
	ErrAlreadyProcessed = errors.New("registration has already been processed")
	ErrNotPending       = errors.New("no longer pending")

	// Roster invariants.
	ErrTeamFull       = errors.New("team is full")
	ErrCrossInstitute = errors.New("cross-institute membership is not allowed")
	ErrAlreadyTeamed  = errors.New("user is already in a team")

	// Proposal uniqueness.
	ErrDuplicatePending = errors.New("a pending request already exists")

	ErrValidation = errors.New("invalid input")

	// Approval failed partway through provisioning and could not be
	// rolled back; operator reconciliation required.
	ErrPartialProvisioning = errors.New("team provisioning is incomplete")
)
