// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/service/onboarding"
	loginstore "github.com/dalemusser/taskhub/internal/app/store/logins"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/dalemusser/taskhub/internal/app/system/respond"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves email/password registration and sign-in.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Onboarding *onboarding.Service
	// Limiter throttles HandleLogin; nil disables it.
	Limiter *ratelimit.LoginLimiter
	// Logins records successful sign-ins when set.
	Logins *loginstore.Store
	Audit  *auditlog.Logger
}

func NewHandler(onboard *onboarding.Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Onboarding: onboard,
		Limiter:    ratelimit.NewLoginLimiter(),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request bodies                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255" label:"Name"`
	Email    string `json:"email" validate:"required,email,max=255" label:"Email"`
	Password string `json:"password" validate:"required,min=4,max=255" label:"Password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type loginResponse struct {
	Message     string      `json:"message"`
	User        models.User `json:"user"`
	AccessToken string      `json:"access_token,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/register                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.ErrLog.Respond(w, r, "register", err)
		return
	}
	if err := inputval.Check(req); err != nil {
		h.ErrLog.Respond(w, r, "register", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "register")
	defer cancel()

	if _, err := h.Onboarding.Register(ctx, onboarding.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	}); err != nil {
		h.ErrLog.Respond(w, r, "register", err)
		return
	}

	respond.JSON(w, http.StatusCreated, respond.Message{"message": "User created successfully."})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                         |
| Sets the session cookie and, when tokens are enabled, returns a bearer JWT.  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.ErrLog.Respond(w, r, "login", err)
		return
	}
	if err := inputval.Check(req); err != nil {
		h.ErrLog.Respond(w, r, "login", err)
		return
	}
	if err := h.Limiter.Check(r, req.Email); err != nil {
		h.Log.Info("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
		h.Audit.LoginRateLimited(r.Context(), r, req.Email)
		h.ErrLog.Respond(w, r, "login", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.Onboarding.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthenticated) {
			h.Audit.LoginFailed(ctx, r, req.Email)
		}
		h.ErrLog.Respond(w, r, "login", err)
		return
	}
	h.Limiter.Succeeded(req.Email)

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.ErrLog.Respond(w, r, "login", apperr.Internal("Failed to start session", err))
		return
	}

	resp := loginResponse{Message: "Logged in successfully", User: u}
	if tokens := h.SessionMgr.Tokens(); tokens != nil {
		tok, exp, err := tokens.Issue(u.ID.Hex())
		if err != nil {
			h.ErrLog.Respond(w, r, "login", apperr.Internal("Failed to issue access token", err))
			return
		}
		resp.AccessToken = tok
		exp = exp.UTC()
		resp.ExpiresAt = &exp
	}

	h.recordLogin(r, u)
	h.Audit.LoginSuccess(r.Context(), r, u.ID, models.ProviderEmail)
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	respond.OK(w, resp)
}

// recordLogin stores the sign-in. Failures are logged, not returned.
func (h *Handler) recordLogin(r *http.Request, u models.User) {
	if h.Logins == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "record login")
	defer cancel()
	if err := h.Logins.CreateFrom(ctx, r, u.ID, models.ProviderEmail); err != nil {
		h.Log.Warn("failed to record login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
}
