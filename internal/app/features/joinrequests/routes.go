// internal/app/features/joinrequests/routes.go
package joinrequests

import (
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for join requests. Students only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole("student"))

	r.Post("/", h.ServeApply)
	r.Post("/{id}/accept", h.ServeAccept)
	r.Post("/{id}/reject", h.ServeReject)
	r.Get("/incoming", h.ServeIncoming)
	r.Get("/mine", h.ServeMine)

	return r
}
