// internal/app/features/workspaces/delete.go
package workspaces

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
)

// HandleDelete handles DELETE /workspace/delete/{id}. Only the owner may
// delete; projects, tasks, and memberships go with the workspace.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.delete", err)
		return
	}
	wsID, err := inputval.PathID(r, "id", "Workspace ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.delete", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "workspace.delete")
	defer cancel()

	current, err := h.Workspaces.Delete(ctx, userID, wsID)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.delete", err)
		return
	}
	h.Audit.WorkspaceDeleted(ctx, r, userID, wsID)
	respond.OK(w, deleteResponse{Message: "Workspace deleted successfully", CurrentWorkspace: current})
}
