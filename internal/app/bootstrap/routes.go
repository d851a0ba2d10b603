// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authgooglefeature "github.com/dalemusser/taskhub/internal/app/features/authgoogle"
	errorsfeature "github.com/dalemusser/taskhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/taskhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/taskhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/taskhub/internal/app/features/logout"
	membersfeature "github.com/dalemusser/taskhub/internal/app/features/members"
	projectsfeature "github.com/dalemusser/taskhub/internal/app/features/projects"
	tasksfeature "github.com/dalemusser/taskhub/internal/app/features/tasks"
	userinfofeature "github.com/dalemusser/taskhub/internal/app/features/userinfo"
	workspacesfeature "github.com/dalemusser/taskhub/internal/app/features/workspaces"
	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskhub/internal/app/service/membersvc"
	"github.com/dalemusser/taskhub/internal/app/service/onboarding"
	"github.com/dalemusser/taskhub/internal/app/service/projectsvc"
	"github.com/dalemusser/taskhub/internal/app/service/tasksvc"
	"github.com/dalemusser/taskhub/internal/app/service/workspacesvc"
	"github.com/dalemusser/taskhub/internal/app/store/audit"
	loginstore "github.com/dalemusser/taskhub/internal/app/store/logins"
	"github.com/dalemusser/taskhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the shared services once and
// mounts the feature routers under the configured base path:
//
//	/health, /metrics           public
//	{base}/auth/...             public (register, login, logout, google)
//	{base}/user, /workspace,
//	/member, /project, /task    signed in (Bearer token or session cookie)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(appCfg.JWTSecret, appCfg.JWTExpiresIn)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.SetTokenIssuer(tokens)

	// The user is re-fetched on every request so deletions take effect
	// immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)
	tx := txn.New(deps.MongoClient, logger)
	policy := memberpolicy.NewFromDB(db).WithObservability(logger, deps.Metrics)

	logins := loginstore.New(db)
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:      appCfg.AuditAuth,
		Workspace: appCfg.AuditWorkspace,
	})

	onboard := onboarding.New(onboarding.StoresFromDB(db), tx, onboarding.Config{
		WorkspaceName: appCfg.DefaultWorkspaceName,
		Metrics:       deps.Metrics,
	}, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appCfg.FrontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(deps.Metrics.Middleware)

	// Loads the SessionUser into context when a token or cookie is present.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(errLog.NotFound)
	r.MethodNotAllowed(errLog.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", deps.Metrics.Handler())

	base := appCfg.BasePath

	// Authentication
	loginHandler := loginfeature.NewHandler(onboard, sessionMgr, errLog, logger)
	loginHandler.Logins = logins
	loginHandler.Audit = auditLog
	authRouter := loginfeature.Routes(loginHandler)

	logoutHandler := logoutfeature.NewHandler(sessionMgr, errLog, logger)
	logoutHandler.Audit = auditLog
	authRouter.Mount("/logout", logoutfeature.Routes(logoutHandler))

	googleHandler := authgooglefeature.NewHandler(sessionMgr, oauthstate.New(db), onboard, authgooglefeature.Config{
		ClientID:            appCfg.GoogleClientID,
		ClientSecret:        appCfg.GoogleClientSecret,
		CallbackURL:         appCfg.GoogleCallbackURL,
		FrontendOrigin:      appCfg.FrontendOrigin,
		FrontendCallbackURL: appCfg.FrontendCallbackURL,
	}, logger)
	googleHandler.Logins = logins
	googleHandler.Audit = auditLog
	authRouter.Mount("/google", authgooglefeature.Routes(googleHandler))
	r.Mount(base+"/auth", authRouter)

	// Everything below requires a signed-in user.
	r.Group(func(pr chi.Router) {
		pr.Use(sessionMgr.RequireSignedIn)

		userHandler := userinfofeature.NewHandler(db, errLog, logger)
		pr.Mount(base+"/user", userinfofeature.Routes(userHandler))

		wsSvc := workspacesvc.New(workspacesvc.StoresFromDB(db), policy, tx, logger)
		wsHandler := workspacesfeature.NewHandler(wsSvc, errLog, logger)
		wsHandler.Audit = auditLog
		pr.Mount(base+"/workspace", workspacesfeature.Routes(wsHandler))

		memberSvc := membersvc.New(db, policy, tx, logger)
		memberHandler := membersfeature.NewHandler(memberSvc, errLog, logger)
		memberHandler.Audit = auditLog
		pr.Mount(base+"/member", membersfeature.Routes(memberHandler))

		projectSvc := projectsvc.New(db, policy, tx, logger)
		pr.Mount(base+"/project", projectsfeature.Routes(projectsfeature.NewHandler(projectSvc, errLog, logger)))

		taskSvc := tasksvc.New(db, policy, logger)
		pr.Mount(base+"/task", tasksfeature.Routes(tasksfeature.NewHandler(taskSvc, errLog, logger)))
	})

	if !googleHandler.IsConfigured() {
		logger.Warn("Google OAuth is not configured; /auth/google redirects with a failure")
	}
	return r, nil
}
