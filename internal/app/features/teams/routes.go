// internal/app/features/teams/routes.go
package teams

import (
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for team endpoints. Students only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole("student"))

	r.Get("/mine", h.ServeMine)
	r.Get("/available", h.ServeAvailable)
	r.Post("/{id}/problem", h.ServeSetProblem)
	r.Delete("/members/{userID}", h.ServeRemoveMember)

	return r
}
