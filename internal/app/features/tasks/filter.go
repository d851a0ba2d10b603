// internal/app/features/tasks/filter.go
package tasks

import (
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/service/tasksvc"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/search"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// parseFilter reads the task list filters from the query string. Unknown
// statuses, priorities, or malformed IDs are rejected rather than ignored.
func parseFilter(r *http.Request) (tasksvc.ListFilter, error) {
	var f tasksvc.ListFilter
	var fields []apperr.FieldError

	if v := query.Get(r, "projectId"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			fields = append(fields, apperr.FieldError{Field: "projectId", Message: "Project ID is not a valid ID."})
		} else {
			f.ProjectID = &id
		}
	}

	for _, s := range search.Split(query.Get(r, "status")) {
		if !models.IsValidTaskStatus(s) {
			fields = append(fields, apperr.FieldError{Field: "status", Message: "Unknown status: " + s})
			continue
		}
		f.Statuses = append(f.Statuses, s)
	}

	for _, p := range search.Split(query.Get(r, "priority")) {
		if !models.IsValidTaskPriority(p) {
			fields = append(fields, apperr.FieldError{Field: "priority", Message: "Unknown priority: " + p})
			continue
		}
		f.Priorities = append(f.Priorities, p)
	}

	for _, a := range search.Split(query.Get(r, "assignedTo")) {
		id, err := primitive.ObjectIDFromHex(a)
		if err != nil {
			fields = append(fields, apperr.FieldError{Field: "assignedTo", Message: "Assigned To is not a valid ID."})
			continue
		}
		f.AssigneeIDs = append(f.AssigneeIDs, id)
	}

	f.Keyword = query.Get(r, "keyword")

	if v := query.Get(r, "dueDate"); v != "" {
		due, err := parseDueDate(v)
		if err != nil {
			ae, _ := apperr.As(err)
			fields = append(fields, ae.Fields...)
		} else {
			f.DueDate = &due
		}
	}

	if len(fields) > 0 {
		return tasksvc.ListFilter{}, apperr.Validation(fields[0].Message, fields...)
	}
	return f, nil
}
