// internal/app/features/invites/handler.go
package invites

import (
	"context"
	"encoding/json"
	"net/http"

	invitestore "github.com/dalemusser/hackhub/internal/app/store/invites"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/render"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	inviteflow "github.com/dalemusser/hackhub/internal/app/workflow/invites"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the team-invite surface for students: leaders send
// and cancel invites, recipients accept or reject them.
type Handler struct {
	svc     *inviteflow.Service
	invites *invitestore.Store
	teams   *teamstore.Store
	log     *zap.Logger
}

func NewHandler(svc *inviteflow.Service, invites *invitestore.Store, teams *teamstore.Store, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, invites: invites, teams: teams, log: logger}
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(chi.URLParam(r, name))
}

type sendRequest struct {
	ToUserID string `json:"to_user_id"`
}

// ServeSend handles POST /invites. Only the leader of the caller's
// team may invite, and only while the roster has room.
func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}
	toUserID, err := primitive.ObjectIDFromHex(req.ToUserID)
	if err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}

	inv, err := h.svc.Send(ctx, id.UserID, toUserID)
	if err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("invite sent",
		zap.String("invite_id", inv.ID.Hex()),
		zap.String("team_id", inv.TeamID.Hex()),
		zap.String("to_user_id", toUserID.Hex()))
	render.JSON(w, http.StatusCreated, inv)
}

// ServeAccept handles POST /invites/{id}/accept.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	inviteID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	if err := h.svc.Accept(ctx, inviteID, id.UserID); err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("invite accepted",
		zap.String("invite_id", inviteID.Hex()),
		zap.String("user_id", id.UserID.Hex()))
	render.JSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// ServeReject handles POST /invites/{id}/reject.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	inviteID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	if err := h.svc.Reject(ctx, inviteID, id.UserID); err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ServeCancel handles DELETE /invites/{id}. Only the sender may cancel,
// and only while the invite is still pending.
func (h *Handler) ServeCancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	inviteID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	if err := h.svc.Cancel(ctx, inviteID, id.UserID); err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// ServeIncoming handles GET /invites/incoming: pending invites
// addressed to the caller.
func (h *Handler) ServeIncoming(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	list, err := h.invites.ListPendingForUser(ctx, id.UserID)
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}

// ServeOutgoing handles GET /invites/outgoing: pending invites sent by
// the caller's team. Empty when the caller has no team.
func (h *Handler) ServeOutgoing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	team, err := h.teams.FindByMember(ctx, id.UserID)
	if err != nil {
		render.Error(w, err)
		return
	}
	if team == nil {
		render.JSON(w, http.StatusOK, []struct{}{})
		return
	}
	list, err := h.invites.ListPendingForTeam(ctx, team.ID)
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}
