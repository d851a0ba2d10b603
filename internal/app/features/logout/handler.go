// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Audit      *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
	}
}

// ServeLogout handles POST /api/auth/logout. Bearer tokens are stateless;
// only the session cookie is cleared.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.ErrLog.Respond(w, r, "logout", apperr.Internal("Failed to end session", err))
		return
	}

	if u, ok := auth.CurrentUser(r); ok {
		h.Log.Info("user logged out", zap.String("user_id", u.ID))
		h.Audit.Logout(r.Context(), r, u.ID)
	}
	respond.OK(w, respond.Message{"message": "Logged out successfully"})
}
