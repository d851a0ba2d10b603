// internal/app/features/workspaces/new.go
package workspaces

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/service/workspacesvc"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
)

// HandleCreate handles POST /workspace/create/new. The caller becomes the
// owner and the new workspace becomes their current one.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.create", err)
		return
	}

	var in workspaceInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "workspace.create", err)
		return
	}
	if err := inputval.Check(in); err != nil {
		h.ErrLog.Respond(w, r, "workspace.create", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "workspace.create")
	defer cancel()

	ws, err := h.Workspaces.Create(ctx, userID, workspacesvc.CreateInput{Name: in.Name, Description: in.Description})
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.create", err)
		return
	}
	h.Audit.WorkspaceCreated(ctx, r, userID, ws.ID, ws.Name)
	respond.JSON(w, http.StatusCreated, workspaceResponse{Message: "Workspace created successfully", Workspace: ws})
}
