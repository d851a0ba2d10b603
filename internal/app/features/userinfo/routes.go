// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/user behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/current", h.ServeCurrentUser)
	r.Get("/logins", h.ServeLogins)
	return r
}
