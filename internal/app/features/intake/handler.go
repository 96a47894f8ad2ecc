// internal/app/features/intake/handler.go
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	institutestore "github.com/dalemusser/hackhub/internal/app/store/institutes"
	pendingstore "github.com/dalemusser/hackhub/internal/app/store/pending"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/credentials"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/app/system/render"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memberCount is how many candidate members a registration names
// besides the leader. The roster can still grow to the full ceiling
// later through invites.
const memberCount = 4

// Handler stages pending registrations. Registration is the one
// unauthenticated write surface, so every precondition is re-checked
// by governance at approval time; intake validation only exists to
// fail fast with a useful message.
type Handler struct {
	pending    *pendingstore.Store
	users      *userstore.Store
	teams      *teamstore.Store
	institutes *institutestore.Store
	issuer     *credentials.Issuer
	sender     mailer.Sender
	siteName   string
	log        *zap.Logger
}

func NewHandler(pending *pendingstore.Store, users *userstore.Store, teams *teamstore.Store, institutes *institutestore.Store, issuer *credentials.Issuer, sender mailer.Sender, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		pending:    pending,
		users:      users,
		teams:      teams,
		institutes: institutes,
		issuer:     issuer,
		sender:     sender,
		siteName:   siteName,
		log:        logger,
	}
}

type registerMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type registerRequest struct {
	TeamName string `json:"team_name"`

	LeaderName     string `json:"leader_name"`
	LeaderEmail    string `json:"leader_email"`
	LeaderPhone    string `json:"leader_phone"`
	LeaderPassword string `json:"leader_password"`

	InstituteCode string `json:"institute_code"`
	InstituteName string `json:"institute_name"`

	MentorName  string `json:"mentor_name"`
	MentorEmail string `json:"mentor_email"`

	SpocName     string `json:"spoc_name"`
	SpocEmail    string `json:"spoc_email"`
	SpocDistrict string `json:"spoc_district"`
	SpocState    string `json:"spoc_state"`

	Members []registerMember `json:"members"`
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", workflow.ErrValidation, field, msg)
}

// validate checks the shape of the request before any store reads.
func (req *registerRequest) validate() error {
	if strings.TrimSpace(req.TeamName) == "" {
		return invalid("team_name", "required")
	}
	if strings.TrimSpace(req.LeaderName) == "" {
		return invalid("leader_name", "required")
	}
	if normalize.Email(req.LeaderEmail) == "" {
		return invalid("leader_email", "required")
	}
	if len(req.LeaderPassword) < 8 {
		return invalid("leader_password", "must be at least 8 characters")
	}
	if normalize.Code(req.InstituteCode) == "" {
		return invalid("institute_code", "required")
	}
	if strings.TrimSpace(req.InstituteName) == "" {
		return invalid("institute_name", "required")
	}
	if strings.TrimSpace(req.MentorName) == "" || normalize.Email(req.MentorEmail) == "" {
		return invalid("mentor", "name and email required")
	}
	if strings.TrimSpace(req.SpocName) == "" || normalize.Email(req.SpocEmail) == "" {
		return invalid("spoc", "name and email required")
	}
	if len(req.Members) != memberCount {
		return invalid("members", fmt.Sprintf("exactly %d members required", memberCount))
	}
	seen := map[string]bool{normalize.Email(req.LeaderEmail): true}
	for i, m := range req.Members {
		email := normalize.Email(m.Email)
		if strings.TrimSpace(m.Name) == "" || email == "" {
			return invalid(fmt.Sprintf("members[%d]", i), "name and email required")
		}
		if seen[email] {
			return invalid(fmt.Sprintf("members[%d]", i), "duplicate email "+email)
		}
		seen[email] = true
	}
	return nil
}

// studentEmails is the leader plus every named member, normalized.
func (req *registerRequest) studentEmails() []string {
	emails := make([]string, 0, memberCount+1)
	emails = append(emails, normalize.Email(req.LeaderEmail))
	for _, m := range req.Members {
		emails = append(emails, normalize.Email(m.Email))
	}
	return emails
}

// ServeRegister handles POST /register.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}
	if err := req.validate(); err != nil {
		render.Error(w, err)
		return
	}

	name := strings.TrimSpace(req.TeamName)

	// Team name must be free across both approved teams and pending
	// registrations. The partial unique index on pending name_ci and the
	// unique index on team name_ci close the race these reads leave open.
	if existing, err := h.teams.GetByName(ctx, name); err != nil {
		render.Error(w, err)
		return
	} else if existing != nil {
		render.Error(w, fmt.Errorf("%w: team name already in use", workflow.ErrValidation))
		return
	}
	if taken, err := h.pending.ExistsTeamName(ctx, name); err != nil {
		render.Error(w, err)
		return
	} else if taken {
		render.Error(w, fmt.Errorf("%w: team name already registered", workflow.ErrValidation))
		return
	}

	if existing, err := h.users.GetByEmail(ctx, req.LeaderEmail); err != nil {
		render.Error(w, err)
		return
	} else if existing != nil {
		render.Error(w, fmt.Errorf("%w: leader email already has an account", workflow.ErrValidation))
		return
	}

	emails := req.studentEmails()
	if teamed, err := h.users.FindTeamedByEmails(ctx, emails); err != nil {
		render.Error(w, err)
		return
	} else if len(teamed) > 0 {
		render.Error(w, fmt.Errorf("%w: %s is already on a team", workflow.ErrAlreadyTeamed, teamed[0].Email))
		return
	}
	if regs, err := h.pending.FindPendingByEmails(ctx, emails); err != nil {
		render.Error(w, err)
		return
	} else if len(regs) > 0 {
		render.Error(w, fmt.Errorf("%w: a named member is already on a pending registration", workflow.ErrDuplicatePending))
		return
	}

	hash, err := h.issuer.Hash(req.LeaderPassword)
	if err != nil {
		render.Error(w, err)
		return
	}

	reg := &models.PendingRegistration{
		Name:               name,
		LeaderName:         strings.TrimSpace(req.LeaderName),
		LeaderEmail:        req.LeaderEmail,
		LeaderPhone:        strings.TrimSpace(req.LeaderPhone),
		LeaderPasswordHash: hash,
		InstituteCode:      req.InstituteCode,
		InstituteName:      strings.TrimSpace(req.InstituteName),
		MentorName:         strings.TrimSpace(req.MentorName),
		MentorEmail:        normalize.Email(req.MentorEmail),
		SpocName:           strings.TrimSpace(req.SpocName),
		SpocEmail:          normalize.Email(req.SpocEmail),
		SpocDistrict:       strings.TrimSpace(req.SpocDistrict),
		SpocState:          strings.TrimSpace(req.SpocState),
		ConsentFileRef:     "consent/" + uuid.NewString(),
	}
	for _, m := range req.Members {
		reg.PendingMembers = append(reg.PendingMembers, models.PendingMember{
			Name:  strings.TrimSpace(m.Name),
			Email: m.Email,
		})
	}

	if _, err := h.institutes.Upsert(ctx, req.InstituteCode, req.InstituteName); err != nil {
		render.Error(w, err)
		return
	}
	if err := h.pending.Insert(ctx, reg); err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("registration staged",
		zap.String("registration_id", reg.ID.Hex()),
		zap.String("team_name", reg.Name),
		zap.String("institute_code", reg.InstituteCode))

	// Acknowledgement is best effort; the registration stands either way.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
		defer cancel()
		email := mailer.BuildRegistrationReceivedEmail(reg.LeaderEmail, mailer.RegistrationReceivedData{
			SiteName:   h.siteName,
			LeaderName: reg.LeaderName,
			TeamName:   reg.Name,
		})
		if err := h.sender.Send(ctx, email); err != nil {
			h.log.Warn("registration acknowledgement email failed",
				zap.String("registration_id", reg.ID.Hex()), zap.Error(err))
		}
	}()

	render.JSON(w, http.StatusCreated, map[string]string{
		"id":     reg.ID.Hex(),
		"status": models.RegistrationPending,
	})
}
