// internal/app/features/workspaces/list.go
package workspaces

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
)

// ServeAll handles GET /workspace/all.
func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.all", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "workspace.all")
	defer cancel()

	list, err := h.Workspaces.ListForUser(ctx, userID)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.all", err)
		return
	}
	respond.OK(w, workspaceListResponse{Message: "User workspaces fetched successfully", Workspaces: list})
}

// ServeGet handles GET /workspace/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.get", err)
		return
	}
	wsID, err := inputval.PathID(r, "id", "Workspace ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.get", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "workspace.get")
	defer cancel()

	d, err := h.Workspaces.Get(ctx, userID, wsID)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.get", err)
		return
	}
	respond.OK(w, workspaceDetailsResponse{
		Message:   "Workspace fetched successfully",
		Workspace: d.Workspace,
		Members:   d.Members,
	})
}

// ServeMembers handles GET /workspace/members/{id}.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.members", err)
		return
	}
	wsID, err := inputval.PathID(r, "id", "Workspace ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.members", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "workspace.members")
	defer cancel()

	list, err := h.Workspaces.Members(ctx, userID, wsID)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.members", err)
		return
	}
	respond.OK(w, membersResponse{
		Message: "Workspace members retrieved successfully",
		Members: list.Members,
		Roles:   list.Roles,
	})
}

// ServeAnalytics handles GET /workspace/analytics/{id}.
func (h *Handler) ServeAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.analytics", err)
		return
	}
	wsID, err := inputval.PathID(r, "id", "Workspace ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.analytics", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "workspace.analytics")
	defer cancel()

	a, err := h.Workspaces.Analytics(ctx, userID, wsID)
	if err != nil {
		h.ErrLog.Respond(w, r, "workspace.analytics", err)
		return
	}
	respond.OK(w, analyticsResponse{Message: "Workspace analytics retrieved successfully", Analytics: a})
}
