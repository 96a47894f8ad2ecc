// Package joinreqs implements the student-initiated membership
// proposal, the mirror image of the invite flow: a student asks to
// join a team and its leader answers.
package joinreqs

import (
	"context"
	"fmt"

	joinrequeststore "github.com/dalemusser/hackhub/internal/app/store/joinrequests"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	"github.com/dalemusser/hackhub/internal/app/system/roster"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	requests *joinrequeststore.Store
	users    *userstore.Store
	teams    *teamstore.Store
	sink     *notify.Sink
}

func NewService(requests *joinrequeststore.Store, users *userstore.Store, teams *teamstore.Store, sink *notify.Sink) *Service {
	return &Service{requests: requests, users: users, teams: teams, sink: sink}
}

// Send raises a join request from a student to a team in their
// institute that still has room. The partial unique index keeps the
// one-pending-request-per-pair rule atomic.
func (s *Service) Send(ctx context.Context, fromUserID, toTeamID primitive.ObjectID) (*models.JoinRequest, error) {
	requester, err := s.users.GetByID(ctx, fromUserID)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}
	team, err := s.teams.GetByID(ctx, toTeamID)
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}
	if team == nil {
		return nil, workflow.ErrNotFound
	}
	if err := roster.Eligible(team, requester); err != nil {
		return nil, err
	}

	req := &models.JoinRequest{
		FromUserID: requester.ID,
		ToTeamID:   team.ID,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, notify.Event{
		Title:         "Join request",
		Message:       fmt.Sprintf("%s has asked to join team %q.", requester.FullName, team.Name),
		RecipientType: models.RecipientUsers,
		Recipients:    []primitive.ObjectID{team.LeaderID},
		InstituteCode: team.InstituteCode,
		TriggeredBy:   requester.ID,
		TeamID:        &team.ID,
		JoinRequestID: &req.ID,
	})
	return req, nil
}

// Accept places the requester on the team. Same discipline as invite
// accept: claim the student's single-membership slot, then the
// capacity-gated append, unwinding the claim if the append loses.
// When the claim loses the request stays pending.
func (s *Service) Accept(ctx context.Context, requestID, actorID primitive.ObjectID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return workflow.ErrNotFound
	}

	team, err := s.teams.GetByID(ctx, req.ToTeamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team == nil {
		return workflow.ErrNotFound
	}
	if team.LeaderID != actorID {
		return fmt.Errorf("%w: only the team leader can answer join requests", workflow.ErrNotAuthorized)
	}
	if req.Status != models.ProposalPending {
		return workflow.ErrNotPending
	}

	requester, err := s.users.GetByID(ctx, req.FromUserID)
	if err != nil {
		return fmt.Errorf("load requester: %w", err)
	}
	if err := roster.Eligible(team, requester); err != nil {
		return err
	}

	claimed, err := s.users.ClaimTeam(ctx, requester.ID, team.ID)
	if err != nil {
		return fmt.Errorf("claim membership: %w", err)
	}
	if !claimed {
		return workflow.ErrAlreadyTeamed
	}

	added, err := s.teams.AddMember(ctx, team.ID, requester.ID)
	if err != nil {
		_ = s.users.ReleaseTeam(ctx, requester.ID, team.ID)
		return fmt.Errorf("append to roster: %w", err)
	}
	if !added {
		_ = s.users.ReleaseTeam(ctx, requester.ID, team.ID)
		return workflow.ErrTeamFull
	}

	flipped, err := s.requests.MarkAccepted(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("mark accepted: %w", err)
	}
	if !flipped {
		_, _ = s.teams.RemoveMember(ctx, team.ID, requester.ID)
		_ = s.users.ReleaseTeam(ctx, requester.ID, team.ID)
		return workflow.ErrNotPending
	}

	s.sink.Publish(ctx, notify.Event{
		Title:         "Join request accepted",
		Message:       fmt.Sprintf("You have joined team %q.", team.Name),
		Type:          "success",
		RecipientType: models.RecipientUsers,
		Recipients:    []primitive.ObjectID{requester.ID},
		InstituteCode: team.InstituteCode,
		TriggeredBy:   actorID,
		TeamID:        &team.ID,
		JoinRequestID: &req.ID,
	})
	return nil
}

// Reject declines a pending join request. Only the team's leader may
// do it.
func (s *Service) Reject(ctx context.Context, requestID, actorID primitive.ObjectID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return workflow.ErrNotFound
	}

	team, err := s.teams.GetByID(ctx, req.ToTeamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team == nil {
		return workflow.ErrNotFound
	}
	if team.LeaderID != actorID {
		return fmt.Errorf("%w: only the team leader can answer join requests", workflow.ErrNotAuthorized)
	}

	flipped, err := s.requests.MarkRejected(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if !flipped {
		return workflow.ErrNotPending
	}

	s.sink.Publish(ctx, notify.Event{
		Title:         "Join request declined",
		Message:       fmt.Sprintf("Your request to join team %q was declined.", team.Name),
		RecipientType: models.RecipientUsers,
		Recipients:    []primitive.ObjectID{req.FromUserID},
		InstituteCode: team.InstituteCode,
		TriggeredBy:   actorID,
		TeamID:        &team.ID,
		JoinRequestID: &req.ID,
	})
	return nil
}
