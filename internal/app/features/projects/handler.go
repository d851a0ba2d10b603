// internal/app/features/projects/handler.go
package projects

import (
	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/service/projectsvc"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves project endpoints scoped to a workspace.
type Handler struct {
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Projects *projectsvc.Service
}

// NewHandler creates a new projects Handler.
func NewHandler(svc *projectsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		Projects: svc,
	}
}

type createProjectInput struct {
	Name        string `json:"name" validate:"required,max=255" label:"Name"`
	Emoji       string `json:"emoji" validate:"max=16" label:"Emoji"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
}

type updateProjectInput struct {
	Name        *string `json:"name" validate:"omitempty,max=255" label:"Name"`
	Emoji       *string `json:"emoji" validate:"omitempty,max=16" label:"Emoji"`
	Description *string `json:"description" validate:"omitempty,max=2000" label:"Description"`
}

type projectResponse struct {
	Message string         `json:"message"`
	Project models.Project `json:"project"`
}

type projectListResponse struct {
	Message    string           `json:"message"`
	Projects   []models.Project `json:"projects"`
	Pagination paging.Meta      `json:"pagination"`
}

type analyticsResponse struct {
	Message   string              `json:"message"`
	Analytics taskstore.Analytics `json:"analytics"`
}
