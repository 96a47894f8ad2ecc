// internal/app/features/governance/handler.go
package governance

import (
	"context"
	"encoding/json"
	"net/http"

	invitestore "github.com/dalemusser/hackhub/internal/app/store/invites"
	pendingstore "github.com/dalemusser/hackhub/internal/app/store/pending"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/render"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	govworkflow "github.com/dalemusser/hackhub/internal/app/workflow/governance"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the review surface: registration decisions, institute
// rosters, invitation logs, and dashboard counts. Admins see every
// institute; SPOCs see their own.
type Handler struct {
	svc     *govworkflow.Service
	pending *pendingstore.Store
	users   *userstore.Store
	teams   *teamstore.Store
	invites *invitestore.Store
	log     *zap.Logger
}

func NewHandler(svc *govworkflow.Service, pending *pendingstore.Store, users *userstore.Store, teams *teamstore.Store, invites *invitestore.Store, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, pending: pending, users: users, teams: teams, invites: invites, log: logger}
}

// actor builds the workflow actor from the bearer identity.
func actor(r *http.Request) (govworkflow.Actor, bool) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		return govworkflow.Actor{}, false
	}
	return govworkflow.Actor{ID: id.UserID, Role: id.Role, InstituteCode: id.InstituteCode}, true
}

// scope returns the institute filter for list endpoints: empty (all)
// for admins, the actor's own institute for SPOCs.
func scope(r *http.Request) string {
	id, _ := auth.CurrentIdentity(r)
	if id.Role == models.RoleAdmin {
		return ""
	}
	return id.InstituteCode
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(chi.URLParam(r, name))
}

// ServeApprove handles POST /governance/registrations/{id}/approve.
// The response is the only place the provisioned credentials ever
// appear in plaintext.
func (h *Handler) ServeApprove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	act, ok := actor(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	regID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	res, err := h.svc.Approve(ctx, regID, act)
	if err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("registration approved",
		zap.String("registration_id", regID.Hex()),
		zap.String("team_id", res.TeamID.Hex()),
		zap.String("approved_by", act.ID.Hex()),
		zap.Int("credentials_issued", len(res.Credentials)))
	render.JSON(w, http.StatusOK, res)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// ServeReject handles POST /governance/registrations/{id}/reject.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	act, ok := actor(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	regID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}

	if err := h.svc.Reject(ctx, regID, act, req.Reason); err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("registration rejected",
		zap.String("registration_id", regID.Hex()),
		zap.String("rejected_by", act.ID.Hex()))
	render.JSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ServeRegistrations handles GET /governance/registrations?status=pending.
func (h *Handler) ServeRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	status := r.URL.Query().Get("status")
	switch status {
	case "":
		status = models.RegistrationPending
	case models.RegistrationPending, models.RegistrationApproved, models.RegistrationRejected:
	default:
		render.Error(w, workflow.ErrValidation)
		return
	}

	regs, err := h.pending.ListByStatus(ctx, status, scope(r))
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"registrations": regs})
}

// ServeRoster handles GET /governance/{role}s (students, mentors,
// judges) for the actor's scope.
func (h *Handler) serveRoster(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		defer cancel()

		users, err := h.users.ListByRoleAndInstitute(ctx, role, scope(r))
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, map[string]any{"users": users})
	}
}

// ServeInvitationLog handles GET /governance/invitations: every invite
// raised within the actor's scope, whatever its outcome.
func (h *Handler) ServeInvitationLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	invites, err := h.invites.ListByInstitute(ctx, scope(r))
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"invitations": invites})
}

// ServeTeams handles GET /governance/teams.
func (h *Handler) ServeTeams(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	teams, err := h.teams.ListByInstitute(ctx, scope(r))
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"teams": teams})
}

type dashboardStats struct {
	PendingRegistrations  int64 `json:"pending_registrations"`
	ApprovedRegistrations int64 `json:"approved_registrations"`
	RejectedRegistrations int64 `json:"rejected_registrations"`
	Teams                 int64 `json:"teams"`
	Students              int64 `json:"students"`
	Mentors               int64 `json:"mentors"`
	Judges                int64 `json:"judges"`
}

// ServeStats handles GET /governance/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inst := scope(r)
	var stats dashboardStats
	var err error

	if stats.PendingRegistrations, err = h.pending.CountByStatus(ctx, models.RegistrationPending, inst); err != nil {
		render.Error(w, err)
		return
	}
	if stats.ApprovedRegistrations, err = h.pending.CountByStatus(ctx, models.RegistrationApproved, inst); err != nil {
		render.Error(w, err)
		return
	}
	if stats.RejectedRegistrations, err = h.pending.CountByStatus(ctx, models.RegistrationRejected, inst); err != nil {
		render.Error(w, err)
		return
	}
	if stats.Teams, err = h.teams.CountByInstitute(ctx, inst); err != nil {
		render.Error(w, err)
		return
	}
	if stats.Students, err = h.users.CountByRoleAndInstitute(ctx, models.RoleStudent, inst); err != nil {
		render.Error(w, err)
		return
	}
	if stats.Mentors, err = h.users.CountByRoleAndInstitute(ctx, models.RoleMentor, inst); err != nil {
		render.Error(w, err)
		return
	}
	if stats.Judges, err = h.users.CountByRoleAndInstitute(ctx, models.RoleJudge, inst); err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, stats)
}
