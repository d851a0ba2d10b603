// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// devSessionKey and devJWTSecret are placeholders that ValidateConfig
// rejects outside dev.
const (
	devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
	devJWTSecret  = "dev-only-jwt-secret"
)

// appConfigKeys defines the configuration keys for TaskHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: TASKHUB_MONGO_URI, TASKHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "taskhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "base_path", Default: "/api", Desc: "Prefix for all API routes"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "taskhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 24h)"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HMAC secret for access tokens"},
	{Name: "jwt_expires_in", Default: "1d", Desc: "Access token lifetime (e.g., 1d, 12h, 90m)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "google_callback_url", Default: "http://localhost:8000/api/auth/google/callback", Desc: "Google OAuth2 redirect URL"},

	{Name: "frontend_origin", Default: "http://localhost:5173", Desc: "Frontend origin allowed by CORS and used for redirects"},
	{Name: "frontend_callback_url", Default: "http://localhost:5173/google/oauth/callback", Desc: "Frontend page that receives OAuth failures"},

	{Name: "default_workspace_name", Default: "My Workspace", Desc: "Name of the workspace created at sign-up"},
	{Name: "seed_roles", Default: true, Desc: "Upsert the owner/admin/member roles at startup"},

	{Name: "oauth_state_cleanup", Default: "@every 15m", Desc: "Cron spec for removing expired OAuth states (blank disables)"},
	{Name: "stats_refresh", Default: "@every 1m", Desc: "Cron spec for refreshing collection gauges (blank disables)"},

	{Name: "audit_auth", Default: "all", Desc: "Audit destination for sign-in events: all, db, log, off"},
	{Name: "audit_workspace", Default: "all", Desc: "Audit destination for workspace and membership events: all, db, log, off"},

	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list queries and single writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for multi-collection transactions"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// TASKHUB_* environment variables and command-line flags with
// precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TASKHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	jwtTTL, err := parseExpiry(appValues.String("jwt_expires_in"))
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("jwt_expires_in: %w", err)
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		BasePath: normalizeBasePath(appValues.String("base_path")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		JWTSecret:    appValues.String("jwt_secret"),
		JWTExpiresIn: jwtTTL,

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		GoogleCallbackURL:  appValues.String("google_callback_url"),

		FrontendOrigin:      strings.TrimRight(appValues.String("frontend_origin"), "/"),
		FrontendCallbackURL: appValues.String("frontend_callback_url"),

		DefaultWorkspaceName: appValues.String("default_workspace_name"),
		SeedRoles:            appValues.Bool("seed_roles"),

		OAuthStateCleanup: appValues.String("oauth_state_cleanup"),
		StatsRefresh:      appValues.String("stats_refresh"),

		AuditAuth:      strings.ToLower(strings.TrimSpace(appValues.String("audit_auth"))),
		AuditWorkspace: strings.ToLower(strings.TrimSpace(appValues.String("audit_workspace"))),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// TaskHub validates the MongoDB URI format before attempting to connect
// and refuses the development secrets outside dev.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if appCfg.JWTExpiresIn <= 0 {
		return fmt.Errorf("jwt_expires_in must be positive")
	}
	if coreCfg.Env != "dev" {
		if appCfg.JWTSecret == devJWTSecret {
			return fmt.Errorf("jwt_secret must be changed outside dev")
		}
		if appCfg.SessionKey == devSessionKey {
			return fmt.Errorf("session_key must be changed outside dev")
		}
	}
	for key, mode := range map[string]string{"audit_auth": appCfg.AuditAuth, "audit_workspace": appCfg.AuditWorkspace} {
		if !auditlog.IsValidMode(mode) {
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, mode)
		}
	}
	for key, spec := range map[string]string{"oauth_state_cleanup": appCfg.OAuthStateCleanup, "stats_refresh": appCfg.StatsRefresh} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", key, spec, err)
		}
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	return nil
}

// parseExpiry accepts a Go duration ("12h", "90m") or a whole number of
// days ("7d").
func parseExpiry(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// normalizeBasePath returns p with one leading slash and no trailing one.
// An empty or "/" path yields "".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
