// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/store/audit"
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination modes for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// IsValidMode reports whether m is one of the destination modes.
func IsValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config selects where each category of events goes.
type Config struct {
	// Auth covers sign-in, throttling, and sign-out.
	Auth string
	// Workspace covers workspace and membership changes.
	Workspace string
}

// Logger writes audit events to MongoDB and to the structured log.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.WorkspaceID != nil {
		fields = append(fields, zap.String("workspace_id", event.WorkspaceID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's mode. A nil Logger is a
// no-op. Store failures are logged and never reach the caller.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var mode string
	switch event.Category {
	case audit.CategoryAuth:
		mode = l.config.Auth
	case audit.CategoryWorkspace:
		mode = l.config.Workspace
	}
	if mode == "" {
		mode = ModeAll
	}
	if mode == ModeOff {
		return
	}

	if mode == ModeAll || mode == ModeLog {
		l.logToZap(event)
	}
	if mode == ModeAll || mode == ModeDB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	e.IP = ratelimit.ClientIP(r)
	e.UserAgent = r.UserAgent()
	return e
}

// --- Authentication Events ---

// LoginSuccess logs a completed sign-in through provider.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, provider string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"provider": provider},
	}))
}

// LoginFailed logs rejected credentials. The attempted email is kept; no
// user ID is recorded so unknown emails and wrong passwords look alike.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		FailureReason: "invalid credentials",
		Details:       map[string]string{"attempted_email": email},
	}))
}

// LoginRateLimited logs a sign-in refused by the limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginRateLimited,
		FailureReason: "rate limit exceeded",
		Details:       map[string]string{"attempted_email": email},
	}))
}

// Logout logs a sign-out. userIDHex may be empty when nobody was signed in.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		userID = &oid
	}
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		Success:   true,
	}))
}

// --- Workspace Events ---

func (l *Logger) workspaceEvent(ctx context.Context, r *http.Request, eventType string, actorID, wsID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:    audit.CategoryWorkspace,
		EventType:   eventType,
		WorkspaceID: &wsID,
		ActorID:     &actorID,
		UserID:      target,
		Success:     true,
		Details:     details,
	}))
}

// WorkspaceCreated logs a new workspace.
func (l *Logger) WorkspaceCreated(ctx context.Context, r *http.Request, actorID, wsID primitive.ObjectID, name string) {
	l.workspaceEvent(ctx, r, audit.EventWorkspaceCreated, actorID, wsID, nil, map[string]string{"name": name})
}

// WorkspaceUpdated logs a rename or description change.
func (l *Logger) WorkspaceUpdated(ctx context.Context, r *http.Request, actorID, wsID primitive.ObjectID, name string) {
	l.workspaceEvent(ctx, r, audit.EventWorkspaceUpdated, actorID, wsID, nil, map[string]string{"name": name})
}

// WorkspaceDeleted logs a workspace deletion.
func (l *Logger) WorkspaceDeleted(ctx context.Context, r *http.Request, actorID, wsID primitive.ObjectID) {
	l.workspaceEvent(ctx, r, audit.EventWorkspaceDeleted, actorID, wsID, nil, nil)
}

// MemberJoined logs a join through an invite code.
func (l *Logger) MemberJoined(ctx context.Context, r *http.Request, userID, wsID primitive.ObjectID, role string) {
	l.workspaceEvent(ctx, r, audit.EventMemberJoined, userID, wsID, &userID, map[string]string{"role": role})
}

// MemberRoleChanged logs a role assignment.
func (l *Logger) MemberRoleChanged(ctx context.Context, r *http.Request, actorID, targetID, wsID, roleID primitive.ObjectID) {
	l.workspaceEvent(ctx, r, audit.EventMemberRoleChanged, actorID, wsID, &targetID, map[string]string{"role_id": roleID.Hex()})
}

// MemberRemoved logs a member removal.
func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, targetID, wsID primitive.ObjectID) {
	l.workspaceEvent(ctx, r, audit.EventMemberRemoved, actorID, wsID, &targetID, nil)
}
