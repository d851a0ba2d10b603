// internal/app/features/workspaces/routes.go
package workspaces

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/workspace behind RequireSignedIn.
// Static segments are registered before /{id} so chi prefers them.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/create/new", h.HandleCreate)
	r.Get("/all", h.ServeAll)
	r.Get("/members/{id}", h.ServeMembers)
	r.Get("/analytics/{id}", h.ServeAnalytics)
	r.Put("/change/member/role/{id}", h.HandleChangeMemberRole)
	r.Put("/update/{id}", h.HandleUpdate)
	r.Delete("/delete/{id}", h.HandleDelete)
	r.Get("/{id}", h.ServeGet)

	return r
}
