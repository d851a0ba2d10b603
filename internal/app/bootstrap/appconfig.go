// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration. WAFFLE's CoreConfig
// handles ports, TLS, logging level and request limits.
//
// The struct is passed to most lifecycle hooks, so any configuration
// needed during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// BasePath prefixes every API route (e.g., /api).
	BasePath string

	// Session cookie
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Access tokens
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// Frontend the API serves; used for CORS and OAuth redirects.
	FrontendOrigin      string
	FrontendCallbackURL string

	// Onboarding
	DefaultWorkspaceName string
	SeedRoles            bool // Upsert the role table at startup

	// Background jobs (cron/v3 specs; blank disables)
	OAuthStateCleanup string
	StatsRefresh      string

	// Audit destinations per category: all, db, log, or off
	AuditAuth      string
	AuditWorkspace string

	// Per-operation database timeouts (zero keeps the defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
