package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/store/audit"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/taskhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "email")
	logger.Logout(ctx, req, "")
}

func TestLogger_Modes(t *testing.T) {
	tests := []struct {
		mode       string
		wantStored int
		wantLogged int
	}{
		{auditlog.ModeAll, 1, 1},
		{auditlog.ModeDB, 1, 0},
		{auditlog.ModeLog, 0, 1},
		{auditlog.ModeOff, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			core, logs := observer.New(zapcore.InfoLevel)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: tt.mode, Workspace: auditlog.ModeOff})
			userID := primitive.NewObjectID()
			logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/api/auth/login", nil), userID, "email")

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if len(events) != tt.wantStored {
				t.Errorf("stored: got %d, want %d", len(events), tt.wantStored)
			}
			if logs.Len() != tt.wantLogged {
				t.Errorf("logged: got %d, want %d", logs.Len(), tt.wantLogged)
			}
		})
	}
}

func TestLogger_WorkspaceEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeOff, Workspace: auditlog.ModeDB})
	req := httptest.NewRequest("DELETE", "/api/member/workspace/x/remove/y", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	owner, bob, wsID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	logger.WorkspaceCreated(ctx, req, owner, wsID, "Acme")
	logger.MemberJoined(ctx, req, bob, wsID, "member")
	logger.MemberRemoved(ctx, req, owner, bob, wsID)
	logger.LoginFailed(ctx, req, "bob@example.com")

	events, err := store.GetByWorkspace(ctx, wsID, 10)
	if err != nil {
		t.Fatalf("GetByWorkspace failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events: got %d, want 3", len(events))
	}
	removed := events[0]
	if removed.EventType != audit.EventMemberRemoved {
		t.Errorf("newest event: got %q", removed.EventType)
	}
	if removed.ActorID == nil || *removed.ActorID != owner || removed.UserID == nil || *removed.UserID != bob {
		t.Errorf("actor/user: got %v/%v", removed.ActorID, removed.UserID)
	}
	if removed.IP != "203.0.113.7" {
		t.Errorf("IP: got %q", removed.IP)
	}
}

func TestIsValidMode(t *testing.T) {
	for _, m := range []string{"all", "db", "log", "off"} {
		if !auditlog.IsValidMode(m) {
			t.Errorf("IsValidMode(%q) = false", m)
		}
	}
	if auditlog.IsValidMode("both") {
		t.Error(`IsValidMode("both") = true`)
	}
}
