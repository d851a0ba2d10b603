// internal/app/features/projects/projects.go
package projects

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/service/projectsvc"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scope reads the caller and the workspace path parameter.
func (h *Handler) scope(r *http.Request) (userID, wsID primitive.ObjectID, err error) {
	if userID, err = authz.Caller(r); err != nil {
		return
	}
	wsID, err = inputval.PathID(r, "workspaceId", "Workspace ID")
	return
}

// projectScope is scope plus the project path parameter.
func (h *Handler) projectScope(r *http.Request) (userID, wsID, projectID primitive.ObjectID, err error) {
	if userID, wsID, err = h.scope(r); err != nil {
		return
	}
	projectID, err = inputval.PathID(r, "id", "Project ID")
	return
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /project/workspace/{workspaceId}/create                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, wsID, err := h.scope(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.create", err)
		return
	}

	var in createProjectInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "project.create", err)
		return
	}
	if err := inputval.Check(in); err != nil {
		h.ErrLog.Respond(w, r, "project.create", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project.create")
	defer cancel()

	p, err := h.Projects.Create(ctx, userID, wsID, projectsvc.Input{
		Name:        &in.Name,
		Emoji:       &in.Emoji,
		Description: &in.Description,
	})
	if err != nil {
		h.ErrLog.Respond(w, r, "project.create", err)
		return
	}
	respond.JSON(w, http.StatusCreated, projectResponse{Message: "Project created successfully", Project: p})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /project/workspace/{workspaceId}/all?pageSize=&pageNumber=               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, wsID, err := h.scope(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.list", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "project.list")
	defer cancel()

	page, err := h.Projects.List(ctx, userID, wsID, paging.ParseParams(r))
	if err != nil {
		h.ErrLog.Respond(w, r, "project.list", err)
		return
	}
	respond.OK(w, projectListResponse{
		Message:    "All projects fetched successfully",
		Projects:   page.Projects,
		Pagination: page.Pagination,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /project/{id}/workspace/{workspaceId}                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	userID, wsID, projectID, err := h.projectScope(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.get", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project.get")
	defer cancel()

	p, err := h.Projects.Get(ctx, userID, wsID, projectID)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.get", err)
		return
	}
	respond.OK(w, projectResponse{Message: "Project fetched successfully", Project: p})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /project/{id}/workspace/{workspaceId}/analytics                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, wsID, projectID, err := h.projectScope(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.analytics", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "project.analytics")
	defer cancel()

	a, err := h.Projects.Analytics(ctx, userID, wsID, projectID)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.analytics", err)
		return
	}
	respond.OK(w, analyticsResponse{Message: "Project analytics retrieved successfully", Analytics: a})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /project/{id}/workspace/{workspaceId}/update                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, wsID, projectID, err := h.projectScope(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.update", err)
		return
	}

	var in updateProjectInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "project.update", err)
		return
	}
	if err := inputval.Check(in); err != nil {
		h.ErrLog.Respond(w, r, "project.update", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project.update")
	defer cancel()

	p, err := h.Projects.Update(ctx, userID, wsID, projectID, projectsvc.Input{
		Name:        in.Name,
		Emoji:       in.Emoji,
		Description: in.Description,
	})
	if err != nil {
		h.ErrLog.Respond(w, r, "project.update", err)
		return
	}
	respond.OK(w, projectResponse{Message: "Project updated successfully", Project: p})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /project/{id}/workspace/{workspaceId}/delete                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, wsID, projectID, err := h.projectScope(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "project.delete", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "project.delete")
	defer cancel()

	if err := h.Projects.Delete(ctx, userID, wsID, projectID); err != nil {
		h.ErrLog.Respond(w, r, "project.delete", err)
		return
	}
	respond.OK(w, respond.Message{"message": "Project deleted successfully"})
}
