// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"
	"strconv"

	notificationstore "github.com/dalemusser/hackhub/internal/app/store/notifications"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/render"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultLimit = 50

// Handler serves each caller their notification feed.
type Handler struct {
	store *notificationstore.Store
}

func NewHandler(store *notificationstore.Store) *Handler {
	return &Handler{store: store}
}

// ServeList handles GET /notifications?limit=n.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	limit := int64(defaultLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			render.Error(w, workflow.ErrValidation)
			return
		}
		limit = n
	}

	list, err := h.store.ListForUser(ctx, id.UserID, id.Role, id.InstituteCode, limit)
	if err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}

// ServeMarkRead handles POST /notifications/{id}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}
	noteID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, workflow.ErrNotFound)
		return
	}

	if err := h.store.MarkRead(ctx, noteID, id.UserID); err != nil {
		render.Error(w, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "read"})
}
