// internal/app/features/userinfo/handler.go
package userinfo

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	loginstore "github.com/dalemusser/taskhub/internal/app/store/logins"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's profile.
type Handler struct {
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
	Users  *userstore.Store
	Logins *loginstore.Store
}

// NewHandler creates a new userinfo handler.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:    logger,
		ErrLog: errLog,
		Users:  userstore.New(db),
		Logins: loginstore.New(db),
	}
}

// recentLogins caps GET /api/user/logins.
const recentLogins = 20

type loginsResponse struct {
	Message string               `json:"message"`
	Logins  []models.LoginRecord `json:"logins"`
}

type currentUserResponse struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

// ServeCurrentUser handles GET /api/user/current. The password hash never
// leaves the server; models.User does not serialize it.
func (h *Handler) ServeCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "user.current", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user.current")
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			err = apperr.NotFound("User not found")
		}
		h.ErrLog.Respond(w, r, "user.current", err)
		return
	}

	respond.OK(w, currentUserResponse{Message: "Fetched user successfully", User: *u})
}

// ServeLogins handles GET /api/user/logins: the caller's most recent
// sign-ins, newest first.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	userID, err := authz.Caller(r)
	if err != nil {
		h.ErrLog.Respond(w, r, "user.logins", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user.logins")
	defer cancel()

	recs, err := h.Logins.Recent(ctx, userID, recentLogins)
	if err != nil {
		h.ErrLog.Respond(w, r, "user.logins", err)
		return
	}
	respond.OK(w, loginsResponse{Message: "Fetched login history successfully", Logins: recs})
}
