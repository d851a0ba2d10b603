// internal/app/features/workspaces/handler.go
package workspaces

import (
	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/service/workspacesvc"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler provides the workspace JSON endpoints. Authorization happens in
// the service; handlers only decode, validate, and encode.
type Handler struct {
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	Workspaces *workspacesvc.Service
	Audit      *auditlog.Logger
}

// NewHandler creates a new workspaces Handler.
func NewHandler(svc *workspacesvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		ErrLog:     errLog,
		Workspaces: svc,
	}
}
