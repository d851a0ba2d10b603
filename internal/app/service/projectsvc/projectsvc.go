// Package projectsvc implements project operations inside a workspace.
package projectsvc

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	projectstore "github.com/dalemusser/taskhub/internal/app/store/projects"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const notFoundMessage = "Project not found or does not belong to the specified workspace"

// TxRunner runs fn in a transaction; txn.Runner implements it.
type TxRunner interface {
	Run(ctx context.Context, fn func(sc mongo.SessionContext) error) error
}

// Service implements the project operations.
type Service struct {
	projects *projectstore.Store
	tasks    *taskstore.Store
	policy   *memberpolicy.Resolver
	tx       TxRunner
	log      *zap.Logger
}

// New creates a Service backed by db.
func New(db *mongo.Database, policy *memberpolicy.Resolver, tx TxRunner, logger *zap.Logger) *Service {
	return &Service{
		projects: projectstore.New(db),
		tasks:    taskstore.New(db),
		policy:   policy,
		tx:       tx,
		log:      logger,
	}
}

// Input holds project fields. On update, nil fields are left alone.
type Input struct {
	Name        *string
	Emoji       *string
	Description *string
}

// Page is one page of projects.
type Page struct {
	Projects   []models.Project `json:"projects"`
	Pagination paging.Meta      `json:"pagination"`
}

// Create adds a project to wsID.
func (s *Service) Create(ctx context.Context, userID, wsID primitive.ObjectID, in Input) (models.Project, error) {
	if _, err := s.policy.Authorize(ctx, "project.create", userID, wsID, authz.CreateProject); err != nil {
		return models.Project{}, err
	}

	p := models.Project{WorkspaceID: wsID, CreatedBy: userID}
	if in.Name != nil {
		p.Name = normalize.Name(*in.Name)
	}
	if p.Name == "" {
		return models.Project{}, apperr.Validation("Name is required",
			apperr.FieldError{Field: "name", Message: "Name is required"})
	}
	if in.Emoji != nil {
		p.Emoji = normalize.Name(*in.Emoji)
	}
	if in.Description != nil {
		p.Description = htmlsanitize.PlainText(*in.Description)
	}

	p, err := s.projects.Create(ctx, p)
	if err != nil {
		return models.Project{}, err
	}
	s.log.Info("project created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("workspace_id", wsID.Hex()))
	return p, nil
}

// List returns one page of the workspace's projects, newest first.
func (s *Service) List(ctx context.Context, userID, wsID primitive.ObjectID, page paging.Params) (Page, error) {
	if _, err := s.policy.Authorize(ctx, "project.list", userID, wsID, authz.ViewOnly); err != nil {
		return Page{}, err
	}

	page = page.Normalize()
	projects, total, err := s.projects.List(ctx, wsID, page)
	if err != nil {
		return Page{}, err
	}
	return Page{Projects: projects, Pagination: paging.NewMeta(total, page)}, nil
}

// Get returns one project of wsID.
func (s *Service) Get(ctx context.Context, userID, wsID, projectID primitive.ObjectID) (models.Project, error) {
	if _, err := s.policy.Authorize(ctx, "project.get", userID, wsID, authz.ViewOnly); err != nil {
		return models.Project{}, err
	}
	return s.project(ctx, projectID, wsID)
}

// Analytics counts the project's tasks.
func (s *Service) Analytics(ctx context.Context, userID, wsID, projectID primitive.ObjectID) (taskstore.Analytics, error) {
	if _, err := s.policy.Authorize(ctx, "project.analytics", userID, wsID, authz.ViewOnly); err != nil {
		return taskstore.Analytics{}, err
	}
	if _, err := s.project(ctx, projectID, wsID); err != nil {
		return taskstore.Analytics{}, err
	}
	return s.tasks.Analytics(ctx, wsID, &projectID, time.Now().UTC())
}

// Update edits a project.
func (s *Service) Update(ctx context.Context, userID, wsID, projectID primitive.ObjectID, in Input) (models.Project, error) {
	if _, err := s.policy.Authorize(ctx, "project.update", userID, wsID, authz.EditProject); err != nil {
		return models.Project{}, err
	}

	var upd projectstore.Update
	if in.Name != nil {
		name := normalize.Name(*in.Name)
		if name == "" {
			return models.Project{}, apperr.Validation("Name cannot be empty",
				apperr.FieldError{Field: "name", Message: "Name cannot be empty"})
		}
		upd.Name = &name
	}
	if in.Emoji != nil {
		emoji := normalize.Name(*in.Emoji)
		upd.Emoji = &emoji
	}
	if in.Description != nil {
		desc := htmlsanitize.PlainText(*in.Description)
		upd.Description = &desc
	}

	p, err := s.projects.Update(ctx, projectID, wsID, upd)
	if err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			return models.Project{}, apperr.NotFound(notFoundMessage)
		}
		return models.Project{}, err
	}
	return p, nil
}

// Delete removes a project and its tasks in one transaction.
func (s *Service) Delete(ctx context.Context, userID, wsID, projectID primitive.ObjectID) error {
	if _, err := s.policy.Authorize(ctx, "project.delete", userID, wsID, authz.DeleteProject); err != nil {
		return err
	}

	var tasks int64
	err := s.tx.Run(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.project(sc, projectID, wsID); err != nil {
			return err
		}
		n, err := s.tasks.DeleteByProject(sc, projectID)
		if err != nil {
			return err
		}
		tasks = n
		_, err = s.projects.Delete(sc, projectID, wsID)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("project deleted",
		zap.String("project_id", projectID.Hex()),
		zap.String("workspace_id", wsID.Hex()),
		zap.Int64("tasks_deleted", tasks))
	return nil
}

func (s *Service) project(ctx context.Context, projectID, wsID primitive.ObjectID) (models.Project, error) {
	p, err := s.projects.Get(ctx, projectID, wsID)
	if err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			return models.Project{}, apperr.NotFound(notFoundMessage)
		}
		return models.Project{}, err
	}
	return p, nil
}
