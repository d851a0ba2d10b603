package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses.
const (
	TaskStatusBacklog    = "backlog"
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusInReview   = "in_review"
	TaskStatusDone       = "done"
)

// Task priorities.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// TaskStatuses lists every valid status in workflow order.
var TaskStatuses = []string{TaskStatusBacklog, TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone}

// TaskPriorities lists every valid priority from lowest to highest.
var TaskPriorities = []string{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

// Task is a unit of work inside a project.
type Task struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	TaskCode    string              `bson:"task_code" json:"taskCode"`
	Title       string              `bson:"title" json:"title"`
	TitleCI     string              `bson:"title_ci" json:"-"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Status      string              `bson:"status" json:"status"`
	Priority    string              `bson:"priority" json:"priority"`
	AssignedTo  *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assignedTo,omitempty"`
	ProjectID   primitive.ObjectID  `bson:"project_id" json:"project"`
	WorkspaceID primitive.ObjectID  `bson:"workspace_id" json:"workspace"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	DueDate     *time.Time          `bson:"due_date,omitempty" json:"dueDate,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsValidTaskStatus reports whether s is a known status.
func IsValidTaskStatus(s string) bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidTaskPriority reports whether p is a known priority.
func IsValidTaskPriority(p string) bool {
	for _, v := range TaskPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// ProjectSummary is the project projection embedded in task listings.
type ProjectSummary struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Emoji string             `bson:"emoji" json:"emoji"`
}

// TaskView is a task joined with its assignee and project, as returned by
// task listings. The joined fields replace the bare IDs in JSON.
type TaskView struct {
	Task     `bson:",inline"`
	Assignee *UserSummary    `bson:"assignee,omitempty" json:"assignedTo"`
	Project  *ProjectSummary `bson:"project,omitempty" json:"project"`
}
