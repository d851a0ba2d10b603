// internal/app/features/tasks/tasks.go
package tasks

import (
	"net/http"
	"strings"

	"github.com/dalemusser/taskhub/internal/app/service/tasksvc"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ids reads the caller and the named ObjectID path parameters, in order.
func ids(r *http.Request, params ...string) (primitive.ObjectID, []primitive.ObjectID, error) {
	userID, err := authz.Caller(r)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	out := make([]primitive.ObjectID, len(params))
	for i, p := range params {
		if out[i], err = inputval.PathID(r, p, paramLabels[p]); err != nil {
			return primitive.NilObjectID, nil, err
		}
	}
	return userID, out, nil
}

var paramLabels = map[string]string{
	"id":          "Task ID",
	"projectId":   "Project ID",
	"workspaceId": "Workspace ID",
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /task/project/{projectId}/workspace/{workspaceId}/create                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, p, err := ids(r, "projectId", "workspaceId")
	if err != nil {
		h.ErrLog.Respond(w, r, "task.create", err)
		return
	}
	projectID, wsID := p[0], p[1]

	var in createTaskInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "task.create", err)
		return
	}
	if err := inputval.Check(in); err != nil {
		h.ErrLog.Respond(w, r, "task.create", err)
		return
	}

	ci := tasksvc.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
	}
	if in.AssignedTo != nil && strings.TrimSpace(*in.AssignedTo) != "" {
		id, err := parseAssignee(*in.AssignedTo)
		if err != nil {
			h.ErrLog.Respond(w, r, "task.create", err)
			return
		}
		ci.AssignedTo = &id
	}
	if in.DueDate != nil && strings.TrimSpace(*in.DueDate) != "" {
		due, err := parseDueDate(*in.DueDate)
		if err != nil {
			h.ErrLog.Respond(w, r, "task.create", err)
			return
		}
		ci.DueDate = &due
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task.create")
	defer cancel()

	t, err := h.Tasks.Create(ctx, userID, wsID, projectID, ci)
	if err != nil {
		h.ErrLog.Respond(w, r, "task.create", err)
		return
	}
	respond.JSON(w, http.StatusCreated, taskResponse{Message: "Task created successfully", Task: t})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /task/{id}/project/{projectId}/workspace/{workspaceId}/update            |
| assignedTo and dueDate accept null to clear the field.                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, p, err := ids(r, "id", "projectId", "workspaceId")
	if err != nil {
		h.ErrLog.Respond(w, r, "task.update", err)
		return
	}
	taskID, projectID, wsID := p[0], p[1], p[2]

	var in updateTaskInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "task.update", err)
		return
	}
	if err := inputval.Check(in); err != nil {
		h.ErrLog.Respond(w, r, "task.update", err)
		return
	}

	ui := tasksvc.UpdateInput{
		Title:         in.Title,
		Description:   in.Description,
		Status:        in.Status,
		Priority:      in.Priority,
		ClearAssignee: in.AssignedTo.Cleared(),
		ClearDueDate:  in.DueDate.Cleared(),
	}
	if in.AssignedTo.Set && !ui.ClearAssignee {
		id, err := parseAssignee(*in.AssignedTo.Value)
		if err != nil {
			h.ErrLog.Respond(w, r, "task.update", err)
			return
		}
		ui.AssignedTo = &id
	}
	if in.DueDate.Set && !ui.ClearDueDate {
		due, err := parseDueDate(*in.DueDate.Value)
		if err != nil {
			h.ErrLog.Respond(w, r, "task.update", err)
			return
		}
		ui.DueDate = &due
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task.update")
	defer cancel()

	t, err := h.Tasks.Update(ctx, userID, wsID, projectID, taskID, ui)
	if err != nil {
		h.ErrLog.Respond(w, r, "task.update", err)
		return
	}
	respond.OK(w, taskResponse{Message: "Task updated successfully", Task: t})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /task/workspace/{workspaceId}/all                                        |
| Filters: projectId, status, priority, assignedTo (comma lists), keyword,     |
| dueDate; paging: pageSize, pageNumber.                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, p, err := ids(r, "workspaceId")
	if err != nil {
		h.ErrLog.Respond(w, r, "task.list", err)
		return
	}

	f, err := parseFilter(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "task.list", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "task.list")
	defer cancel()

	page, err := h.Tasks.List(ctx, userID, p[0], f, paging.ParseParams(r))
	if err != nil {
		h.ErrLog.Respond(w, r, "task.list", err)
		return
	}
	respond.OK(w, taskListResponse{
		Message:    "All tasks fetched successfully",
		Tasks:      page.Tasks,
		Pagination: page.Pagination,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /task/{id}/project/{projectId}/workspace/{workspaceId}                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	userID, p, err := ids(r, "id", "projectId", "workspaceId")
	if err != nil {
		h.ErrLog.Respond(w, r, "task.get", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task.get")
	defer cancel()

	t, err := h.Tasks.Get(ctx, userID, p[2], p[1], p[0])
	if err != nil {
		h.ErrLog.Respond(w, r, "task.get", err)
		return
	}
	respond.OK(w, taskViewResponse{Message: "Task fetched successfully", Task: t})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /task/{id}/workspace/{workspaceId}/delete                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, p, err := ids(r, "id", "workspaceId")
	if err != nil {
		h.ErrLog.Respond(w, r, "task.delete", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task.delete")
	defer cancel()

	if err := h.Tasks.Delete(ctx, userID, p[1], p[0]); err != nil {
		h.ErrLog.Respond(w, r, "task.delete", err)
		return
	}
	respond.OK(w, respond.Message{"message": "Task deleted successfully"})
}
