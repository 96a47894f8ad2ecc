// Package governance implements the registration review pipeline:
// approving a pending registration provisions the institute, every
// account, and the team in one idempotent pass, and rejection is a
// terminal audit-preserving flip.
package governance

import (
	"context"
	"fmt"
	"strings"

	institutestore "github.com/dalemusser/hackhub/internal/app/store/institutes"
	pendingstore "github.com/dalemusser/hackhub/internal/app/store/pending"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/credentials"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Actor identifies who is performing a governance operation.
type Actor struct {
	ID            primitive.ObjectID
	Role          string
	InstituteCode string
}

// Credential is one freshly provisioned login, returned exactly once
// from Approve. The plaintext is never persisted or logged.
type Credential struct {
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ApprovalResult is what Approve hands back to the reviewer.
type ApprovalResult struct {
	TeamID      primitive.ObjectID `json:"team_id"`
	TeamName    string             `json:"team_name"`
	Credentials []Credential       `json:"credentials"`
}

type Service struct {
	pending    *pendingstore.Store
	users      *userstore.Store
	teams      *teamstore.Store
	institutes *institutestore.Store
	creds      *credentials.Issuer
	sink       *notify.Sink
	mail       mailer.Sender
	siteName   string
	loginURL   string
}

func NewService(
	pending *pendingstore.Store,
	users *userstore.Store,
	teams *teamstore.Store,
	institutes *institutestore.Store,
	creds *credentials.Issuer,
	sink *notify.Sink,
	mail mailer.Sender,
	siteName, loginURL string,
) *Service {
	return &Service{
		pending:    pending,
		users:      users,
		teams:      teams,
		institutes: institutes,
		creds:      creds,
		sink:       sink,
		mail:       mail,
		siteName:   siteName,
		loginURL:   loginURL,
	}
}

func (s *Service) authorize(actor Actor, instituteCode string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleSpoc:
		if normalize.Code(actor.InstituteCode) == normalize.Code(instituteCode) {
			return nil
		}
	}
	return workflow.ErrNotAuthorized
}

// Approve provisions everything a registration names and flips it to
// approved. Every step converges on retry: accounts are looked up
// before they are created, the team insert is guarded by the unique
// name index, and the final status flip is conditional, so the second
// of two racing approvals reports ErrAlreadyProcessed instead of
// double-provisioning.
func (s *Service) Approve(ctx context.Context, registrationID primitive.ObjectID, actor Actor) (*ApprovalResult, error) {
	reg, err := s.pending.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return nil, workflow.ErrNotFound
	}
	if err := s.authorize(actor, reg.InstituteCode); err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationPending {
		return nil, workflow.ErrAlreadyProcessed
	}

	if _, err := s.institutes.Upsert(ctx, reg.InstituteCode, reg.InstituteName); err != nil {
		return nil, fmt.Errorf("upsert institute: %w", err)
	}

	// Pre-flight: no student named here may already be on a team. This
	// screens before anything is written; the per-student claim below
	// closes the race window it leaves open.
	studentEmails := make([]string, 0, 1+len(reg.PendingMembers))
	studentEmails = append(studentEmails, reg.LeaderEmail)
	for _, m := range reg.PendingMembers {
		studentEmails = append(studentEmails, m.Email)
	}
	taken, err := s.users.FindTeamedByEmails(ctx, studentEmails)
	if err != nil {
		return nil, fmt.Errorf("screen members: %w", err)
	}
	if len(taken) > 0 {
		emails := make([]string, 0, len(taken))
		for _, u := range taken {
			emails = append(emails, u.Email)
		}
		return nil, fmt.Errorf("%w: %s", workflow.ErrAlreadyTeamed, strings.Join(emails, ", "))
	}

	var issued []Credential
	provision := func(fullName, email, phone, role, district, state string) (*models.User, error) {
		plaintext, err := s.creds.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate credential: %w", err)
		}
		hash, err := s.creds.Hash(plaintext)
		if err != nil {
			return nil, fmt.Errorf("hash credential: %w", err)
		}
		user, created, err := s.users.LookupOrCreate(ctx, userstore.NewAccount{
			FullName:      fullName,
			Email:         email,
			Phone:         phone,
			Role:          role,
			InstituteCode: reg.InstituteCode,
			InstituteName: reg.InstituteName,
			District:      district,
			State:         state,
			PasswordHash:  hash,
		})
		if err != nil {
			return nil, fmt.Errorf("provision %s account: %w", role, err)
		}
		if created {
			issued = append(issued, Credential{
				Role:     role,
				FullName: user.FullName,
				Email:    user.Email,
				Password: plaintext,
			})
		}
		return user, nil
	}

	leader, err := provision(reg.LeaderName, reg.LeaderEmail, reg.LeaderPhone, models.RoleStudent, "", "")
	if err != nil {
		return nil, err
	}
	members := make([]*models.User, 0, len(reg.PendingMembers))
	for _, m := range reg.PendingMembers {
		u, err := provision(m.Name, m.Email, "", models.RoleStudent, "", "")
		if err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	mentor, err := provision(reg.MentorName, reg.MentorEmail, "", models.RoleMentor, "", "")
	if err != nil {
		return nil, err
	}
	spoc, err := provision(reg.SpocName, reg.SpocEmail, "", models.RoleSpoc, reg.SpocDistrict, reg.SpocState)
	if err != nil {
		return nil, err
	}

	team, createdTeam, err := s.ensureTeam(ctx, reg, leader, mentor.ID, spoc.ID, actor.ID)
	if err != nil {
		return nil, err
	}

	if err := s.placeStudents(ctx, team, leader, members, createdTeam); err != nil {
		return nil, err
	}

	flipped, err := s.pending.MarkApproved(ctx, reg.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("flip registration: %w", err)
	}
	if !flipped {
		// A concurrent approver got there first. Everything above
		// converged onto their provisioning, so nothing to undo, but
		// any account this call created holds a secret only we know,
		// so those credentials still need to go out.
		s.emailCredentials(ctx, team.Name, issued)
		return nil, workflow.ErrAlreadyProcessed
	}

	s.announceApproval(ctx, reg, team, leader, members, actor.ID, issued)

	return &ApprovalResult{
		TeamID:      team.ID,
		TeamName:    team.Name,
		Credentials: issued,
	}, nil
}

// ensureTeam creates the team, or converges onto the one an earlier
// pass of this same approval already created.
func (s *Service) ensureTeam(ctx context.Context, reg *models.PendingRegistration, leader *models.User, mentorID, spocID, approvedBy primitive.ObjectID) (*models.Team, bool, error) {
	team := &models.Team{
		Name:           reg.Name,
		LeaderID:       leader.ID,
		Members:        []primitive.ObjectID{leader.ID},
		InstituteCode:  reg.InstituteCode,
		InstituteName:  reg.InstituteName,
		MentorID:       &mentorID,
		SpocID:         &spocID,
		ProblemID:      reg.ProblemID,
		ConsentFileRef: reg.ConsentFileRef,
		ApprovedBy:     approvedBy,
	}
	err := s.teams.Insert(ctx, team)
	if err == nil {
		return team, true, nil
	}
	if err != teamstore.ErrDuplicateName {
		return nil, false, fmt.Errorf("create team: %w", err)
	}

	existing, err := s.teams.GetByName(ctx, reg.Name)
	if err != nil {
		return nil, false, fmt.Errorf("load existing team: %w", err)
	}
	if existing != nil && existing.LeaderID == leader.ID {
		// Same leader, same name: an earlier pass of this approval.
		return existing, false, nil
	}
	return nil, false, fmt.Errorf("%w: team name already in use", workflow.ErrValidation)
}

// placeStudents claims every student's single membership slot and
// appends the non-leaders to the roster. On failure it unwinds
// whatever landed this pass; a failed unwind is surfaced as
// ErrPartialProvisioning.
func (s *Service) placeStudents(ctx context.Context, team *models.Team, leader *models.User, members []*models.User, createdTeam bool) error {
	var claimed []primitive.ObjectID
	var appended []primitive.ObjectID

	unwind := func(cause error) error {
		var failures []string
		for _, id := range appended {
			if _, err := s.teams.RemoveMember(ctx, team.ID, id); err != nil {
				failures = append(failures, fmt.Sprintf("remove %s: %v", id.Hex(), err))
			}
		}
		for _, id := range claimed {
			if err := s.users.ReleaseTeam(ctx, id, team.ID); err != nil {
				failures = append(failures, fmt.Sprintf("release %s: %v", id.Hex(), err))
			}
		}
		if createdTeam {
			if err := s.teams.Delete(ctx, team.ID); err != nil {
				failures = append(failures, fmt.Sprintf("delete team: %v", err))
			}
		}
		if len(failures) > 0 {
			zap.L().Error("approval rollback incomplete",
				zap.String("team_id", team.ID.Hex()),
				zap.Strings("failures", failures),
				zap.Error(cause))
			return fmt.Errorf("%w: %v", workflow.ErrPartialProvisioning, cause)
		}
		return cause
	}

	claim := func(u *models.User) error {
		ok, err := s.users.ClaimTeam(ctx, u.ID, team.ID)
		if err != nil {
			return unwind(fmt.Errorf("claim student %s: %w", u.Email, err))
		}
		if ok {
			claimed = append(claimed, u.ID)
			return nil
		}
		// Refused: either a retry that already claimed this exact
		// team, or the student got onto another team since pre-flight.
		cur, err := s.users.GetByID(ctx, u.ID)
		if err != nil {
			return unwind(fmt.Errorf("recheck student %s: %w", u.Email, err))
		}
		if cur != nil && cur.TeamID != nil && *cur.TeamID == team.ID {
			return nil
		}
		return unwind(fmt.Errorf("%w: %s", workflow.ErrAlreadyTeamed, u.Email))
	}

	if err := claim(leader); err != nil {
		return err
	}
	for _, m := range members {
		if err := claim(m); err != nil {
			return err
		}
		added, err := s.teams.AddMember(ctx, team.ID, m.ID)
		if err != nil {
			return unwind(fmt.Errorf("append student %s: %w", m.Email, err))
		}
		if added {
			appended = append(appended, m.ID)
			continue
		}
		// Refused: already on the roster from an earlier pass, or the
		// roster filled up underneath us.
		cur, err := s.teams.GetByID(ctx, team.ID)
		if err != nil {
			return unwind(fmt.Errorf("recheck roster: %w", err))
		}
		onRoster := false
		if cur != nil {
			for _, id := range cur.Members {
				if id == m.ID {
					onRoster = true
					break
				}
			}
		}
		if !onRoster {
			return unwind(fmt.Errorf("%w: no room for %s", workflow.ErrTeamFull, m.Email))
		}
	}
	return nil
}

// announceApproval sends the post-approval notifications and credential
// emails. All best-effort: failures are logged, never propagated.
func (s *Service) announceApproval(ctx context.Context, reg *models.PendingRegistration, team *models.Team, leader *models.User, members []*models.User, actorID primitive.ObjectID, issued []Credential) {
	studentIDs := []primitive.ObjectID{leader.ID}
	for _, m := range members {
		studentIDs = append(studentIDs, m.ID)
	}
	s.sink.Publish(ctx, notify.Event{
		Title:         "Team approved",
		Message:       fmt.Sprintf("Team %q has been approved for %s.", team.Name, s.siteName),
		Type:          "success",
		RecipientType: models.RecipientUsers,
		Recipients:    studentIDs,
		TriggeredBy:   actorID,
		TeamID:        &team.ID,
	})
	s.sink.Publish(ctx, notify.Event{
		Title:         "Team approved",
		Message:       fmt.Sprintf("Team %q from your institute has been approved.", team.Name),
		RecipientType: models.RecipientSpocs,
		InstituteCode: reg.InstituteCode,
		TriggeredBy:   actorID,
		TeamID:        &team.ID,
	})

	s.emailCredentials(ctx, team.Name, issued)
}

func (s *Service) emailCredentials(ctx context.Context, teamName string, issued []Credential) {
	for _, c := range issued {
		email := mailer.BuildCredentialsEmail(c.Email, mailer.CredentialsEmailData{
			SiteName: s.siteName,
			FullName: c.FullName,
			TeamName: teamName,
			Email:    c.Email,
			Password: c.Password,
			LoginURL: s.loginURL,
		})
		if err := s.mail.Send(ctx, email); err != nil {
			zap.L().Warn("credentials email failed",
				zap.String("to", c.Email),
				zap.Error(err))
		}
	}
}

// Reject flips a pending registration to rejected. The reason is
// required and the document is kept for audit; re-rejecting (or
// rejecting after approval) reports ErrNotPending.
func (s *Service) Reject(ctx context.Context, registrationID primitive.ObjectID, actor Actor, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: rejection reason is required", workflow.ErrValidation)
	}

	reg, err := s.pending.GetByID(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return workflow.ErrNotFound
	}
	if err := s.authorize(actor, reg.InstituteCode); err != nil {
		return err
	}

	flipped, err := s.pending.MarkRejected(ctx, reg.ID, actor.ID, reason)
	if err != nil {
		return fmt.Errorf("flip registration: %w", err)
	}
	if !flipped {
		return workflow.ErrNotPending
	}

	s.sink.Publish(ctx, notify.Event{
		Title:         "Registration declined",
		Message:       fmt.Sprintf("The registration for team %q was not approved: %s", reg.Name, reason),
		Type:          "warning",
		RecipientType: models.RecipientSpocs,
		InstituteCode: reg.InstituteCode,
		TriggeredBy:   actor.ID,
	})
	email := mailer.BuildRejectionEmail(reg.LeaderEmail, mailer.RejectionEmailData{
		SiteName:   s.siteName,
		LeaderName: reg.LeaderName,
		TeamName:   reg.Name,
		Reason:     reason,
	})
	if err := s.mail.Send(ctx, email); err != nil {
		zap.L().Warn("rejection email failed",
			zap.String("to", reg.LeaderEmail),
			zap.Error(err))
	}
	return nil
}
