// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/service/onboarding"
	loginstore "github.com/dalemusser/taskhub/internal/app/store/logins"
	"github.com/dalemusser/taskhub/internal/app/store/oauthstate"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// stateTTL bounds the time between ServeLogin and the callback.
const stateTTL = 10 * time.Minute

// Config holds the OAuth client and the frontend redirect targets.
type Config struct {
	ClientID     string
	ClientSecret string
	// CallbackURL is the absolute URL of GET /api/auth/google/callback.
	CallbackURL string
	// FrontendOrigin receives successful sign-ins at /workspace/{id}.
	FrontendOrigin string
	// FrontendCallbackURL receives failures as ?status=failure.
	FrontendCallbackURL string
}

// Handler handles Google OAuth authentication.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	StateStore *oauthstate.Store
	Onboarding *onboarding.Service
	Config     Config
	// Logins records successful sign-ins when set.
	Logins     *loginstore.Store
	Audit      *auditlog.Logger

	// Identify exchanges an authorization code for the Google identity.
	// Tests replace it to avoid calling Google.
	Identify func(ctx context.Context, code string) (onboarding.ExternalIdentity, error)
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	stateStore *oauthstate.Store,
	onboard *onboarding.Service,
	cfg Config,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		StateStore: stateStore,
		Onboarding: onboard,
		Config:     cfg,
	}
	h.Identify = h.exchange
	return h
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.Config.ClientID,
		ClientSecret: h.Config.ClientSecret,
		RedirectURL:  h.Config.CallbackURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.Config.ClientID != "" && h.Config.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google                                                         |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.fail(w, r, "google_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}

	// Optional frontend path to land on after sign-in.
	returnURL := query.Get(r, "return")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "google.login")
	defer cancel()

	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}

	url := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google/callback                                                |
| Consumes the state, resolves the Google identity to a user (onboarding it    |
| on first sign-in), starts a session, and redirects to the frontend.          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		h.fail(w, r, "google_denied")
		return
	}

	state := query.Get(r, "state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		h.fail(w, r, "invalid_state")
		return
	}

	stateCtx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "google.state")
	defer cancel()

	returnURL, valid, err := h.StateStore.Consume(stateCtx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.fail(w, r, "invalid_state")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.fail(w, r, "invalid_code")
		return
	}

	id, err := h.Identify(r.Context(), code)
	if err != nil {
		h.Log.Error("failed to resolve Google identity", zap.Error(err))
		h.fail(w, r, "user_info")
		return
	}

	ctx, cancelOnboard := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "google.onboard")
	defer cancelOnboard()

	res, err := h.Onboarding.LoginOrCreate(ctx, id)
	if err != nil {
		h.Log.Error("Google OAuth: onboarding failed",
			zap.String("google_id", id.ProviderID),
			zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	if res.WorkspaceID.IsZero() {
		h.Log.Info("Google OAuth: user has no current workspace",
			zap.String("user_id", res.User.ID.Hex()))
		h.fail(w, r, "no_workspace")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, res.User.ID.Hex()); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", res.User.ID.Hex()))
		h.fail(w, r, "session")
		return
	}

	if h.Logins != nil {
		if err := h.Logins.CreateFrom(ctx, r, res.User.ID, models.ProviderGoogle); err != nil {
			h.Log.Warn("failed to record login", zap.String("user_id", res.User.ID.Hex()), zap.Error(err))
		}
	}
	h.Audit.LoginSuccess(ctx, r, res.User.ID, models.ProviderGoogle)

	h.Log.Info("user logged in via Google OAuth",
		zap.String("user_id", res.User.ID.Hex()),
		zap.Bool("created", res.Created))

	dest := urlutil.SafeReturn(returnURL, "", "/workspace/"+res.WorkspaceID.Hex())
	http.Redirect(w, r, strings.TrimRight(h.Config.FrontendOrigin, "/")+dest, http.StatusSeeOther)
}

// fail redirects to the frontend callback page with status=failure.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	dest := h.Config.FrontendCallbackURL + "?status=failure&reason=" + reason
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Google identity                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// exchange trades code for a token and reads the Google profile.
func (h *Handler) exchange(ctx context.Context, code string) (onboarding.ExternalIdentity, error) {
	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return onboarding.ExternalIdentity{}, fmt.Errorf("exchange code: %w", err)
	}
	info, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		return onboarding.ExternalIdentity{}, err
	}

	id := onboarding.ExternalIdentity{
		Provider:    models.ProviderGoogle,
		ProviderID:  info.ID,
		DisplayName: info.Name,
		Picture:     info.Picture,
	}
	// Unverified addresses must not match an existing user by email.
	if info.EmailVerified {
		id.Email = info.Email
	}
	return id, nil
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
