// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the notification feed. Any signed-in
// role; the store scopes what each role sees.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/{id}/read", h.ServeMarkRead)

	return r
}
