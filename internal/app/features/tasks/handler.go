// internal/app/features/tasks/handler.go
package tasks

import (
	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/service/tasksvc"
	"go.uber.org/zap"
)

// Handler serves task endpoints scoped to a workspace and project.
type Handler struct {
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
	Tasks  *tasksvc.Service
}

// NewHandler creates a new tasks Handler.
func NewHandler(svc *tasksvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:    logger,
		ErrLog: errLog,
		Tasks:  svc,
	}
}
