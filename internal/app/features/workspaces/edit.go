// internal/app/features/workspaces/edit.go
package workspaces

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/service/workspacesvc"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleUpdate handles PUT /workspace/update/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.update", err)
		return
	}
	wsID, err := inputval.PathID(r, "id", "Workspace ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.update", err)
		return
	}

	var in updateWorkspaceInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "workspace.update", err)
		return
	}
	if err := inputval.Check(in); err != nil {
		h.ErrLog.Respond(w, r, "workspace.update", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "workspace.update")
	defer cancel()

	ws, err := h.Workspaces.Update(ctx, userID, wsID, workspacesvc.UpdateInput{Name: in.Name, Description: in.Description})
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.update", err)
		return
	}
	h.Audit.WorkspaceUpdated(ctx, r, userID, wsID, ws.Name)
	respond.OK(w, workspaceResponse{Message: "Workspace updated successfully", Workspace: ws})
}

// HandleChangeMemberRole handles PUT /workspace/change/member/role/{id}.
func (h *Handler) HandleChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.change_role", err)
		return
	}
	wsID, err := inputval.PathID(r, "id", "Workspace ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.change_role", err)
		return
	}

	var in changeRoleInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "workspace.change_role", err)
		return
	}
	if err := inputval.Check(in); err != nil {
		h.ErrLog.Respond(w, r, "workspace.change_role", err)
		return
	}
	// Both IDs passed the objectid rule.
	roleID, _ := primitive.ObjectIDFromHex(in.RoleID)
	memberID, _ := primitive.ObjectIDFromHex(in.MemberID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "workspace.change_role")
	defer cancel()

	m, err := h.Workspaces.ChangeMemberRole(ctx, userID, wsID, memberID, roleID)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.change_role", err)
		return
	}
	h.Audit.MemberRoleChanged(ctx, r, userID, memberID, wsID, roleID)
	respond.OK(w, memberResponse{Message: "Member role changed successfully", Member: m})
}
