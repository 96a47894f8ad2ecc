// internal/app/features/joinrequests/handler.go
package joinrequests

import (
	"context"
	"encoding/json"
	"net/http"

	joinrequeststore "github.com/dalemusser/hackhub/internal/app/store/joinrequests"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/render"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	joinflow "github.com/dalemusser/hackhub/internal/app/workflow/joinreqs"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the join-request surface: unteamed students apply to
// teams, leaders accept or reject the applications.
type Handler struct {
	svc      *joinflow.Service
	requests *joinrequeststore.Store
	teams    *teamstore.Store
	log      *zap.Logger
}

func NewHandler(svc *joinflow.Service, requests *joinrequeststore.Store, teams *teamstore.Store, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, requests: requests, teams: teams, log: logger}
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(chi.URLParam(r, name))
}

type applyRequest struct {
	TeamID string `json:"team_id"`
}

// ServeApply handles POST /join-requests.
func (h *Handler) ServeApply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}
	teamID, err := primitive.ObjectIDFromHex(req.TeamID)
	if err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}

	jr, err := h.svc.Send(ctx, id.UserID, teamID)
	if err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("join request sent",
		zap.String("request_id", jr.ID.Hex()),
		zap.String("team_id", teamID.Hex()),
		zap.String("from_user_id", id.UserID.Hex()))
	render.JSON(w, http.StatusCreated, jr)
}

// ServeAccept handles POST /join-requests/{id}/accept. Leader only.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	if err := h.svc.Accept(ctx, requestID, id.UserID); err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("join request accepted",
		zap.String("request_id", requestID.Hex()),
		zap.String("accepted_by", id.UserID.Hex()))
	render.JSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// ServeReject handles POST /join-requests/{id}/reject. Leader only.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	if err := h.svc.Reject(ctx, requestID, id.UserID); err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ServeIncoming handles GET /join-requests/incoming: pending
// applications to the caller's team. Empty when the caller has no team.
func (h *Handler) ServeIncoming(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.requests.ListPendingForTeam(ctx, team.ID)
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}

// ServeMine handles GET /join-requests/mine: every application the
// caller has made, pending or decided.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	list, err := h.requests.ListForUser(ctx, id.UserID)
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}
