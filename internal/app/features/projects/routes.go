// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/project behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/workspace/{workspaceId}/create", h.HandleCreate)
	r.Get("/workspace/{workspaceId}/all", h.ServeList)

	r.Route("/{id}/workspace/{workspaceId}", func(pr chi.Router) {
		pr.Get("/", h.ServeGet)
		pr.Get("/analytics", h.ServeAnalytics)
		pr.Put("/update", h.HandleUpdate)
		pr.Delete("/delete", h.HandleDelete)
	})

	return r
}
