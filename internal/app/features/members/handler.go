// internal/app/features/members/handler.go
package members

import (
	"net/http"

	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/service/membersvc"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves workspace membership endpoints.
type Handler struct {
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Members *membersvc.Service
	Audit   *auditlog.Logger
}

// NewHandler creates a new members Handler.
func NewHandler(svc *membersvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:     logger,
		ErrLog:  errLog,
		Members: svc,
	}
}

type joinResponse struct {
	Message     string             `json:"message"`
	WorkspaceID primitive.ObjectID `json:"workspaceId"`
	Role        string             `json:"role"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /member/workspace/{inviteCode}/join                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "member.join", err)
		return
	}

	code := chi.URLParam(r, "inviteCode")
	if code == "" || len(code) > 64 {
		h.ErrLog.Respond(w, r, "member.join", apperr.Validation("Invite code is required",
			apperr.FieldError{Field: "inviteCode", Message: "Invite code is required"}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "member.join")
	defer cancel()

	res, err := h.Members.JoinByInviteCode(ctx, userID, code)
	if err != nil {
		h.ErrLog.Respond(w, r, "member.join", err)
		return
	}
	h.Audit.MemberJoined(ctx, r, userID, res.WorkspaceID, res.Role)
	respond.OK(w, joinResponse{
		Message:     "Successfully joined the workspace",
		WorkspaceID: res.WorkspaceID,
		Role:        res.Role,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /member/workspace/{id}/remove/{memberId}                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "member.remove", err)
		return
	}
	wsID, err := inputval.PathID(r, "id", "Workspace ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "member.remove", err)
		return
	}
	memberID, err := inputval.PathID(r, "memberId", "Member ID")
	if err != nil {
		h.ErrLog.Respond(w, r, "member.remove", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "member.remove")
	defer cancel()

	if err := h.Members.Remove(ctx, userID, wsID, memberID); err != nil {
		h.ErrLog.Respond(w, r, "member.remove", err)
		return
	}
	h.Audit.MemberRemoved(ctx, r, userID, memberID, wsID)
	respond.OK(w, respond.Message{"message": "Member removed successfully"})
}
