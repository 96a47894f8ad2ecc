// internal/app/features/governance/routes.go
package governance

import (
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the review surface. SPOCs operate on
// their own institute; admins see everything.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole("spoc", "admin"))

	r.Get("/registrations", h.ServeRegistrations)
	r.Post("/registrations/{id}/approve", h.ServeApprove)
	r.Post("/registrations/{id}/reject", h.ServeReject)

	r.Get("/students", h.serveRoster("student"))
	r.Get("/mentors", h.serveRoster("mentor"))
	r.Get("/judges", h.serveRoster("judge"))

	r.Get("/invitations", h.ServeInvitationLog)
	r.Get("/teams", h.ServeTeams)
	r.Get("/stats", h.ServeStats)

	return r
}
