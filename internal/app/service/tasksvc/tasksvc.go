// Package tasksvc implements task operations inside a workspace project.
package tasksvc

import (
	"context"
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	memberstore "github.com/dalemusser/taskhub/internal/app/store/members"
	projectstore "github.com/dalemusser/taskhub/internal/app/store/projects"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	projectNotFound = "Project not found or does not belong to the specified workspace"
	taskNotFound    = "Task not found or does not belong to the specified project"
)

// Service implements the task operations.
type Service struct {
	tasks    *taskstore.Store
	projects *projectstore.Store
	members  *memberstore.Store
	policy   *memberpolicy.Resolver
	log      *zap.Logger
	code     func() string
}

// New creates a Service backed by db.
func New(db *mongo.Database, policy *memberpolicy.Resolver, logger *zap.Logger) *Service {
	return &Service{
		tasks:    taskstore.New(db),
		projects: projectstore.New(db),
		members:  memberstore.New(db),
		policy:   policy,
		log:      logger,
		code:     NewTaskCode,
	}
}

// NewTaskCode returns "task-" followed by 3 random base-36 characters.
func NewTaskCode() string {
	id := uuid.New()
	n := binary.BigEndian.Uint32(id[:4]) % (36 * 36 * 36)
	s := strconv.FormatUint(uint64(n), 36)
	return "task-" + strings.Repeat("0", 3-len(s)) + s
}

// CreateInput describes a new task. Empty Status and Priority take the
// defaults (todo, medium).
type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  *primitive.ObjectID
	DueDate     *time.Time
}

// UpdateInput changes a task. Nil fields are left alone.
type UpdateInput struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	AssignedTo    *primitive.ObjectID
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
}

// ListFilter narrows a task listing. Zero values match everything.
type ListFilter struct {
	ProjectID   *primitive.ObjectID
	Statuses    []string
	Priorities  []string
	AssigneeIDs []primitive.ObjectID
	Keyword     string
	DueDate     *time.Time
}

// Page is one page of tasks.
type Page struct {
	Tasks      []models.TaskView `json:"tasks"`
	Pagination paging.Meta       `json:"pagination"`
}

// Create adds a task to a project of wsID.
func (s *Service) Create(ctx context.Context, userID, wsID, projectID primitive.ObjectID, in CreateInput) (models.Task, error) {
	if _, err := s.policy.Authorize(ctx, "task.create", userID, wsID, authz.CreateTask); err != nil {
		return models.Task{}, err
	}

	t := models.Task{
		Title:       normalize.Name(in.Title),
		Description: htmlsanitize.PlainText(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		AssignedTo:  in.AssignedTo,
		ProjectID:   projectID,
		WorkspaceID: wsID,
		CreatedBy:   userID,
		DueDate:     in.DueDate,
	}
	if err := validate(&t.Title, &t.Status, &t.Priority, true); err != nil {
		return models.Task{}, err
	}

	if err := s.requireProject(ctx, projectID, wsID); err != nil {
		return models.Task{}, err
	}
	if err := s.requireAssignee(ctx, in.AssignedTo, wsID); err != nil {
		return models.Task{}, err
	}

	t.TaskCode = s.code()
	t, err := s.tasks.Create(ctx, t)
	if err != nil {
		return models.Task{}, err
	}
	s.log.Info("task created",
		zap.String("task_id", t.ID.Hex()),
		zap.String("task_code", t.TaskCode),
		zap.String("project_id", projectID.Hex()),
		zap.String("workspace_id", wsID.Hex()))
	return t, nil
}

// Update edits a task of a project in wsID.
func (s *Service) Update(ctx context.Context, userID, wsID, projectID, taskID primitive.ObjectID, in UpdateInput) (models.Task, error) {
	if _, err := s.policy.Authorize(ctx, "task.update", userID, wsID, authz.EditTask); err != nil {
		return models.Task{}, err
	}

	upd := taskstore.Update{
		Status:        in.Status,
		Priority:      in.Priority,
		AssignedTo:    in.AssignedTo,
		ClearAssignee: in.ClearAssignee,
		DueDate:       in.DueDate,
		ClearDueDate:  in.ClearDueDate,
	}
	if in.Title != nil {
		title := normalize.Name(*in.Title)
		upd.Title = &title
	}
	if in.Description != nil {
		desc := htmlsanitize.PlainText(*in.Description)
		upd.Description = &desc
	}
	if err := validate(upd.Title, upd.Status, upd.Priority, false); err != nil {
		return models.Task{}, err
	}

	if err := s.requireProject(ctx, projectID, wsID); err != nil {
		return models.Task{}, err
	}
	if !in.ClearAssignee {
		if err := s.requireAssignee(ctx, in.AssignedTo, wsID); err != nil {
			return models.Task{}, err
		}
	}

	t, err := s.tasks.Update(ctx, taskID, wsID, projectID, upd)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			return models.Task{}, apperr.NotFound(taskNotFound)
		}
		return models.Task{}, err
	}
	return t, nil
}

// List returns one page of the workspace's tasks matching f, newest first.
func (s *Service) List(ctx context.Context, userID, wsID primitive.ObjectID, f ListFilter, page paging.Params) (Page, error) {
	if _, err := s.policy.Authorize(ctx, "task.list", userID, wsID, authz.ViewOnly); err != nil {
		return Page{}, err
	}

	page = page.Normalize()
	tasks, total, err := s.tasks.List(ctx, taskstore.Filter{
		WorkspaceID: wsID,
		ProjectID:   f.ProjectID,
		Statuses:    f.Statuses,
		Priorities:  f.Priorities,
		AssigneeIDs: f.AssigneeIDs,
		Keyword:     normalize.Keyword(f.Keyword),
		DueDate:     f.DueDate,
	}, page)
	if err != nil {
		return Page{}, err
	}
	return Page{Tasks: tasks, Pagination: paging.NewMeta(total, page)}, nil
}

// Get returns one task with its assignee and project.
func (s *Service) Get(ctx context.Context, userID, wsID, projectID, taskID primitive.ObjectID) (models.TaskView, error) {
	if _, err := s.policy.Authorize(ctx, "task.get", userID, wsID, authz.ViewOnly); err != nil {
		return models.TaskView{}, err
	}
	if err := s.requireProject(ctx, projectID, wsID); err != nil {
		return models.TaskView{}, err
	}

	t, err := s.tasks.GetView(ctx, taskID, wsID, projectID)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			return models.TaskView{}, apperr.NotFound(taskNotFound)
		}
		return models.TaskView{}, err
	}
	return t, nil
}

// Delete removes a task from wsID.
func (s *Service) Delete(ctx context.Context, userID, wsID, taskID primitive.ObjectID) error {
	if _, err := s.policy.Authorize(ctx, "task.delete", userID, wsID, authz.DeleteTask); err != nil {
		return err
	}

	n, err := s.tasks.Delete(ctx, taskID, wsID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Task not found or does not belong to the specified workspace")
	}
	s.log.Info("task deleted",
		zap.String("task_id", taskID.Hex()),
		zap.String("workspace_id", wsID.Hex()))
	return nil
}

func (s *Service) requireProject(ctx context.Context, projectID, wsID primitive.ObjectID) error {
	if _, err := s.projects.Get(ctx, projectID, wsID); err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			return apperr.NotFound(projectNotFound)
		}
		return err
	}
	return nil
}

func (s *Service) requireAssignee(ctx context.Context, assignee *primitive.ObjectID, wsID primitive.ObjectID) error {
	if assignee == nil {
		return nil
	}
	ok, err := s.members.IsMember(ctx, *assignee, wsID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("Assigned user is not a member of this workspace",
			apperr.FieldError{Field: "assignedTo", Message: "Assigned user is not a member of this workspace"})
	}
	return nil
}

// validate checks the fields that are set. allowEmpty permits an empty
// status and priority, which the store defaults on create.
func validate(title, status, priority *string, allowEmpty bool) error {
	var fields []apperr.FieldError
	if title != nil && *title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "Title is required"})
	}
	if status != nil && !(allowEmpty && *status == "") && !models.IsValidTaskStatus(*status) {
		fields = append(fields, apperr.FieldError{Field: "status", Message: "Status must be one of " + strings.Join(models.TaskStatuses, ", ")})
	}
	if priority != nil && !(allowEmpty && *priority == "") && !models.IsValidTaskPriority(*priority) {
		fields = append(fields, apperr.FieldError{Field: "priority", Message: "Priority must be one of " + strings.Join(models.TaskPriorities, ", ")})
	}
	if len(fields) > 0 {
		return apperr.Validation(fields[0].Message, fields...)
	}
	return nil
}
