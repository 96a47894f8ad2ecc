// internal/app/features/intake/routes.go
package intake

import "github.com/go-chi/chi/v5"

// Routes returns the router for registration intake. Unauthenticated.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeRegister)
	return r
}
