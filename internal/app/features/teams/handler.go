// internal/app/features/teams/handler.go
package teams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/notify"
	"github.com/dalemusser/hackhub/internal/app/system/render"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the team surface for students: the caller's own team,
// open teams to apply to, problem selection, and member removal.
type Handler struct {
	teams *teamstore.Store
	users *userstore.Store
	sink  *notify.Sink
	log   *zap.Logger
}

func NewHandler(teams *teamstore.Store, users *userstore.Store, sink *notify.Sink, logger *zap.Logger) *Handler {
	return &Handler{teams: teams, users: users, sink: sink, log: logger}
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(chi.URLParam(r, name))
}

// ServeMine handles GET /teams/mine.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
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
		render.Error(w, workflow.ErrNotFound)
		return
	}
	render.JSON(w, http.StatusOK, team)
}

// ServeAvailable handles GET /teams/available: teams in the caller's
// institute whose roster still has room.
func (h *Handler) ServeAvailable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	list, err := h.teams.ListAvailable(ctx, id.InstituteCode)
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}

type problemRequest struct {
	ProblemID string `json:"problem_id"`
}

// ServeSetProblem handles POST /teams/{id}/problem. Leader only.
func (h *Handler) ServeSetProblem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	teamID, err := pathID(r, "id")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}
	var req problemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}
	problemID, err := primitive.ObjectIDFromHex(req.ProblemID)
	if err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}

	team, err := h.teams.GetByID(ctx, teamID)
	if err != nil {
		render.Error(w, err)
		return
	}
	if team == nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}
	if team.LeaderID != id.UserID {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}

	updated, err := h.teams.SetProblem(ctx, teamID, problemID)
	if err != nil {
		render.Error(w, err)
		return
	}
	if !updated {
		render.Error(w, workflow.ErrNotFound)
		return
	}
	h.log.Info("problem selected",
		zap.String("team_id", teamID.Hex()),
		zap.String("problem_id", problemID.Hex()))
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeRemoveMember handles DELETE /teams/members/{userID}. The leader
// removes a member from their own team; the leader cannot be removed.
func (h *Handler) ServeRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	memberID, err := pathID(r, "userID")
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	team, err := h.teams.FindByMember(ctx, id.UserID)
	if err != nil {
		render.Error(w, err)
		return
	}
	if team == nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}
	if team.LeaderID != id.UserID {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	if memberID == team.LeaderID {
		render.Error(w, workflow.ErrValidation)
		return
	}

	removed, err := h.teams.RemoveMember(ctx, team.ID, memberID)
	if err != nil {
		render.Error(w, err)
		return
	}
	if !removed {
		render.Error(w, workflow.ErrNotFound)
		return
	}
	if err := h.users.ReleaseTeam(ctx, memberID, team.ID); err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("member removed",
		zap.String("team_id", team.ID.Hex()),
		zap.String("member_id", memberID.Hex()),
		zap.String("removed_by", id.UserID.Hex()))
	h.sink.Publish(ctx, notify.Event{
		Title:         "Removed from team",
		Message:       fmt.Sprintf("You have been removed from team %s.", team.Name),
		Type:          "warning",
		RecipientType: models.RecipientUsers,
		Recipients:    []primitive.ObjectID{memberID},
		TriggeredBy:   id.UserID,
		TeamID:        &team.ID,
	})
	render.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
