// Package invites implements the leader-initiated membership proposal:
// a team invites one student, who accepts or rejects, with every
// invariant enforced by a conditional write rather than a
// check-then-act read.
package invites

import (
	"context"
	"fmt"

	invitestore "github.com/dalemusser/hackhub/internal/app/store/invites"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	"github.com/dalemusser/hackhub/internal/app/system/roster"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	invites *invitestore.Store
	users   *userstore.Store
	teams   *teamstore.Store
	sink    *notify.Sink
}

func NewService(invites *invitestore.Store, users *userstore.Store, teams *teamstore.Store, sink *notify.Sink) *Service {
	return &Service{invites: invites, users: users, teams: teams, sink: sink}
}

// Send raises an invite from the sender's team to a student. The
// sender must lead a team with room; the recipient must be an unteamed
// student of the same institute. The partial unique index keeps the
// one-pending-invite-per-pair rule atomic under racing sends.
func (s *Service) Send(ctx context.Context, senderID, toUserID primitive.ObjectID) (*models.TeamInvite, error) {
	team, err := s.teams.FindByMember(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("load sender team: %w", err)
	}
	if team == nil || team.LeaderID != senderID {
		return nil, fmt.Errorf("%w: only a team leader can send invites", workflow.ErrNotAuthorized)
	}
	if !roster.HasRoom(team) {
		return nil, workflow.ErrTeamFull
	}

	recipient, err := s.users.GetByID(ctx, toUserID)
	if err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	if err := roster.Eligible(team, recipient); err != nil {
		return nil, err
	}

	inv := &models.TeamInvite{
		FromUserID:    senderID,
		ToUserID:      recipient.ID,
		TeamID:        team.ID,
		InstituteCode: team.InstituteCode,
	}
	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, notify.Event{
		Title:         "Team invitation",
		Message:       fmt.Sprintf("Team %q has invited you to join.", team.Name),
		RecipientType: models.RecipientUsers,
		Recipients:    []primitive.ObjectID{recipient.ID},
		InstituteCode: team.InstituteCode,
		TriggeredBy:   senderID,
		TeamID:        &team.ID,
		InviteID:      &inv.ID,
	})
	return inv, nil
}

// Accept places the recipient on the inviting team. The student's
// single-membership slot is claimed first; only then is the
// capacity-gated roster append attempted, so two teams accepting the
// same student, or six students racing for one slot, resolve to
// exactly one winner.
//
// When the claim loses because the student joined another team, the
// invite stays pending: they may still accept it later if they leave
// that team.
func (s *Service) Accept(ctx context.Context, inviteID, actorID primitive.ObjectID) error {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("load invite: %w", err)
	}
	if inv == nil {
		return workflow.ErrNotFound
	}
	if inv.ToUserID != actorID {
		return workflow.ErrNotAuthorized
	}
	if inv.Status != models.ProposalPending {
		return workflow.ErrNotPending
	}

	team, err := s.teams.GetByID(ctx, inv.TeamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team == nil {
		return workflow.ErrNotFound
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if err := roster.Eligible(team, actor); err != nil {
		return err
	}

	claimed, err := s.users.ClaimTeam(ctx, actorID, team.ID)
	if err != nil {
		return fmt.Errorf("claim membership: %w", err)
	}
	if !claimed {
		return workflow.ErrAlreadyTeamed
	}

	added, err := s.teams.AddMember(ctx, team.ID, actorID)
	if err != nil {
		_ = s.users.ReleaseTeam(ctx, actorID, team.ID)
		return fmt.Errorf("append to roster: %w", err)
	}
	if !added {
		// The roster filled (or the team vanished) between the claim
		// and the append. Give the slot back.
		_ = s.users.ReleaseTeam(ctx, actorID, team.ID)
		cur, err := s.teams.GetByID(ctx, team.ID)
		if err != nil {
			return fmt.Errorf("recheck team: %w", err)
		}
		if cur == nil {
			return workflow.ErrNotFound
		}
		return workflow.ErrTeamFull
	}

	flipped, err := s.invites.MarkAccepted(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("mark accepted: %w", err)
	}
	if !flipped {
		// A cancel or reject landed between our reads and the flip.
		_, _ = s.teams.RemoveMember(ctx, team.ID, actorID)
		_ = s.users.ReleaseTeam(ctx, actorID, team.ID)
		return workflow.ErrNotPending
	}

	s.sink.Publish(ctx, notify.Event{
		Title:         "Invitation accepted",
		Message:       fmt.Sprintf("%s has joined team %q.", actor.FullName, team.Name),
		Type:          "success",
		RecipientType: models.RecipientUsers,
		Recipients:    []primitive.ObjectID{inv.FromUserID},
		InstituteCode: team.InstituteCode,
		TriggeredBy:   actorID,
		TeamID:        &team.ID,
		InviteID:      &inv.ID,
	})
	return nil
}

// Reject declines a pending invite. Only the recipient may do it.
func (s *Service) Reject(ctx context.Context, inviteID, actorID primitive.ObjectID) error {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("load invite: %w", err)
	}
	if inv == nil {
		return workflow.ErrNotFound
	}
	if inv.ToUserID != actorID {
		return workflow.ErrNotAuthorized
	}

	flipped, err := s.invites.MarkRejected(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if !flipped {
		return workflow.ErrNotPending
	}

	s.sink.Publish(ctx, notify.Event{
		Title:         "Invitation declined",
		Message:       "Your team invitation was declined.",
		RecipientType: models.RecipientUsers,
		Recipients:    []primitive.ObjectID{inv.FromUserID},
		InstituteCode: inv.InstituteCode,
		TriggeredBy:   actorID,
		TeamID:        &inv.TeamID,
		InviteID:      &inv.ID,
	})
	return nil
}

// Cancel withdraws a pending invite. Only the original sender may do
// it, and only while the invite is still pending; a response that has
// already landed wins over the cancel.
func (s *Service) Cancel(ctx context.Context, inviteID, actorID primitive.ObjectID) error {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("load invite: %w", err)
	}
	if inv == nil {
		return workflow.ErrNotFound
	}
	if inv.FromUserID != actorID {
		return workflow.ErrNotAuthorized
	}

	deleted, err := s.invites.DeletePending(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	if !deleted {
		return workflow.ErrNotPending
	}
	return nil
}
