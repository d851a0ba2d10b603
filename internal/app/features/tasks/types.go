// internal/app/features/tasks/types.go
package tasks

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// nullable records whether a JSON field was present and whether it was
// null, so updates can tell "leave alone" from "clear".
type nullable struct {
	Set   bool
	Value *string
}

func (n *nullable) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// Cleared reports a present field that is null or blank.
func (n nullable) Cleared() bool {
	return n.Set && (n.Value == nil || strings.TrimSpace(*n.Value) == "")
}

type createTaskInput struct {
	Title       string  `json:"title" validate:"required,max=255" label:"Title"`
	Description string  `json:"description" validate:"max=5000" label:"Description"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high" label:"Priority"`
	Status      string  `json:"status" validate:"omitempty,oneof=backlog todo in_progress in_review done" label:"Status"`
	AssignedTo  *string `json:"assignedTo" validate:"omitempty,objectid" label:"Assigned To"`
	DueDate     *string `json:"dueDate" label:"Due Date"`
}

type updateTaskInput struct {
	Title       *string  `json:"title" validate:"omitempty,max=255" label:"Title"`
	Description *string  `json:"description" validate:"omitempty,max=5000" label:"Description"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low medium high" label:"Priority"`
	Status      *string  `json:"status" validate:"omitempty,oneof=backlog todo in_progress in_review done" label:"Status"`
	AssignedTo  nullable `json:"assignedTo" validate:"-"`
	DueDate     nullable `json:"dueDate" validate:"-"`
}

type taskResponse struct {
	Message string      `json:"message"`
	Task    models.Task `json:"task"`
}

type taskViewResponse struct {
	Message string          `json:"message"`
	Task    models.TaskView `json:"task"`
}

type taskListResponse struct {
	Message    string            `json:"message"`
	Tasks      []models.TaskView `json:"tasks"`
	Pagination paging.Meta       `json:"pagination"`
}

// dueDateLayouts are tried in order; the frontend sends either form.
var dueDateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDueDate parses v as a due date in UTC.
func parseDueDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	msg := "Due Date must be a date (YYYY-MM-DD) or an RFC 3339 timestamp."
	return time.Time{}, apperr.Validation(msg, apperr.FieldError{Field: "dueDate", Message: msg})
}

// parseAssignee parses v as a user ID.
func parseAssignee(v string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(v))
	if err != nil {
		msg := "Assigned To is not a valid ID."
		return primitive.NilObjectID, apperr.Validation(msg, apperr.FieldError{Field: "assignedTo", Message: msg})
	}
	return id, nil
}
