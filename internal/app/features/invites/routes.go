// internal/app/features/invites/routes.go
package invites

import (
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for team invites. Students only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole("student"))

	r.Post("/", h.ServeSend)
	r.Post("/{id}/accept", h.ServeAccept)
	r.Post("/{id}/reject", h.ServeReject)
	r.Delete("/{id}", h.ServeCancel)
	r.Get("/incoming", h.ServeIncoming)
	r.Get("/outgoing", h.ServeOutgoing)

	return r
}
