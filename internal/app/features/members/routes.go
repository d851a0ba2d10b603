// internal/app/features/members/routes.go
package members

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/member behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/workspace/{inviteCode}/join", h.HandleJoin)
	r.Delete("/workspace/{id}/remove/{memberId}", h.HandleRemove)
	return r
}
