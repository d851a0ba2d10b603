package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the identity injected into r.Context() for each request.
// It is rebuilt from the database on every request; roles are per
// workspace and are resolved by the services, not cached here.
type SessionUser struct {
	ID               string
	Name             string
	Email            string
	CurrentWorkspace string
}

// UserFetcher loads fresh user data for an authenticated user ID.
// It returns nil when the user does not exist or is inactive.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	authFailureKey ctxKey = "authFailure"
)

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Used by handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the bearer-token verifier and
// turns either credential into a SessionUser.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	tokens  *TokenIssuer
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager creates a cookie-backed session manager.
//
// In production (secure=true), cookies are Secure + SameSite=None so the
// separately hosted frontend can send them. In local dev over
// http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		return nil, fmt.Errorf("session name is empty")
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher sets the fetcher used by LoadSessionUser.
func (m *SessionManager) SetUserFetcher(f UserFetcher) { m.fetcher = f }

// SetTokenIssuer enables bearer-token authentication.
func (m *SessionManager) SetTokenIssuer(t *TokenIssuer) { m.tokens = t }

// Tokens returns the configured token issuer (may be nil).
func (m *SessionManager) Tokens() *TokenIssuer { return m.tokens }

// GetSession returns the named session. On a decode error a fresh session
// is returned together with the error so callers can log and continue.
func (m *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, m.name)
}

// SignIn marks the session as authenticated for userID and saves it.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, err := m.GetSession(r)
	if err != nil {
		m.logSessionErr(err, userID)
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.GetSession(r)
	delete(sess.Values, isAuthKey)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func (m *SessionManager) logSessionErr(err error, userID string) {
	var scErr securecookie.Error
	if errors.As(err, &scErr) && scErr.IsDecode() {
		m.log.Warn("session cookie invalid, using fresh session",
			zap.Error(err), zap.String("user_id", userID))
		return
	}
	m.log.Error("session store error, using fresh session",
		zap.Error(err), zap.String("user_id", userID))
}

// LoadSessionUser injects the user into context when the request carries a
// valid bearer token or an authenticated session cookie. The user is
// re-fetched on every request so deactivation takes effect immediately.
// A rejected token or a missing user is remembered for RequireSignedIn.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, failure := m.identify(r)
		if userID == "" {
			if failure != "" {
				r = withAuthFailure(r, failure)
			}
			next.ServeHTTP(w, r)
			return
		}

		var u *SessionUser
		if m.fetcher != nil {
			u = m.fetcher.FetchUser(r.Context(), userID)
		} else {
			u = &SessionUser{ID: userID}
		}
		if u != nil {
			r = withUser(r, u)
		} else {
			r = withAuthFailure(r, apperr.CodeUserNotFound)
		}
		next.ServeHTTP(w, r)
	})
}

// identify returns the user ID asserted by the request, or "" with the
// error code explaining why a presented credential was refused.
func (m *SessionManager) identify(r *http.Request) (string, string) {
	if raw := bearerToken(r); raw != "" && m.tokens != nil {
		id, err := m.tokens.Verify(raw)
		if err != nil {
			m.log.Debug("bearer token rejected", zap.Error(err))
			return "", apperr.CodeAuthInvalidToken
		}
		return id, ""
	}

	sess, err := m.GetSession(r)
	if err != nil {
		return "", ""
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return "", ""
	}
	id, _ := sess.Values[userIDKey].(string)
	return id, ""
}

// unauthorizedMessages maps the 401 error codes to their messages.
var unauthorizedMessages = map[string]string{
	apperr.CodeAuthUnauthorized: "Unauthorized. Please log in.",
	apperr.CodeAuthInvalidToken: "Invalid or expired token",
	apperr.CodeUserNotFound:     "User not found",
}

// RequireSignedIn ensures there is a user in context (set by
// LoadSessionUser). Otherwise it answers 401 with the standard JSON body.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		code := apperr.CodeAuthUnauthorized
		if c, ok := r.Context().Value(authFailureKey).(string); ok {
			code = c
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message":   unauthorizedMessages[code],
			"errorCode": code,
		})
	})
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func withAuthFailure(r *http.Request, code string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authFailureKey, code))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
