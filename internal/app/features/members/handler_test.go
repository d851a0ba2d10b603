package members_test

import (
	"context"
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/features/members"
	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskhub/internal/app/service/membersvc"
	"github.com/dalemusser/taskhub/internal/app/store/audit"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auditlog"
	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	fixtures *testutil.Fixtures
	roles    map[string]models.Role
	owner    models.User
	ws       models.Workspace
}

func setup(t *testing.T) (*env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	logger := zap.NewNop()
	svc := membersvc.New(db, memberpolicy.NewFromDB(db), txn.New(db.Client(), logger), logger)
	h := members.NewHandler(svc, uierrors.NewErrorLogger(logger), logger)
	h.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{Auth: auditlog.ModeOff, Workspace: auditlog.ModeDB})

	e := &env{router: members.Routes(h), fixtures: testutil.NewFixtures(t, db)}
	e.roles = e.fixtures.SeedRoles(ctx)
	e.owner, e.ws = e.fixtures.OwnedWorkspace(ctx, e.roles, "Alice", "alice@example.com")
	return e, ctx
}

func (e *env) do(t *testing.T, u models.User, method, target string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.WithUser(testutil.NewJSONRequest(t, method, target, nil), u))
	return rec
}

func TestHandleJoin(t *testing.T) {
	e, ctx := setup(t)
	bob := e.fixtures.CreateUser(ctx, "Bob", "bob@example.com")

	rec := e.do(t, bob, http.MethodPost, "/workspace/"+e.ws.InviteCode+"/join")
	rec.AssertStatus(t, http.StatusOK)
	var resp struct {
		WorkspaceID string `json:"workspaceId"`
		Role        string `json:"role"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.WorkspaceID != e.ws.ID.Hex() || resp.Role != models.RoleMember {
		t.Errorf("join: got %+v", resp)
	}
	if n := e.fixtures.Count(ctx, "audit_events", bson.M{"event_type": audit.EventMemberJoined, "workspace_id": e.ws.ID}); n != 1 {
		t.Errorf("member_joined audit events: got %d, want 1", n)
	}

	tests := []struct {
		name       string
		code       string
		wantStatus int
	}{
		{"already a member", e.ws.InviteCode, http.StatusBadRequest},
		{"unknown code", "nope0000", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.do(t, bob, http.MethodPost, "/workspace/"+tt.code+"/join").AssertStatus(t, tt.wantStatus)
		})
	}
}

func TestHandleRemove(t *testing.T) {
	e, ctx := setup(t)
	testutil.RequireTransactions(t, e.fixtures.DB())
	bob := e.fixtures.CreateUser(ctx, "Bob", "bob@example.com")
	e.fixtures.AddMember(ctx, bob.ID, e.ws.ID, e.roles[models.RoleMember])
	base := "/workspace/" + e.ws.ID.Hex() + "/remove/"

	tests := []struct {
		name       string
		user       models.User
		target     string
		wantStatus int
		wantCode   string
	}{
		{"member cannot remove", bob, base + e.owner.ID.Hex(), http.StatusForbidden, apperr.CodeAccessUnauthorized},
		{"owner is protected", e.owner, base + e.owner.ID.Hex(), http.StatusBadRequest, apperr.CodeOwnerCannotBeRemoved},
		{"bad member id", e.owner, base + "bob", http.StatusBadRequest, apperr.CodeValidation},
		{"remove bob", e.owner, base + bob.ID.Hex(), http.StatusOK, ""},
		{"bob already gone", e.owner, base + bob.ID.Hex(), http.StatusNotFound, apperr.CodeResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.user, http.MethodDelete, tt.target)
			rec.AssertStatus(t, tt.wantStatus)
			if tt.wantCode == "" {
				return
			}
			var body testutil.ErrorBody
			rec.DecodeJSON(t, &body)
			if body.ErrorCode != tt.wantCode {
				t.Errorf("errorCode: got %q, want %q", body.ErrorCode, tt.wantCode)
			}
		})
	}

	if n := e.fixtures.Count(ctx, "members", bson.M{"user_id": bob.ID}); n != 0 {
		t.Errorf("bob memberships: got %d, want 0", n)
	}
	if n := e.fixtures.Count(ctx, "audit_events", bson.M{"event_type": audit.EventMemberRemoved, "user_id": bob.ID}); n != 1 {
		t.Errorf("member_removed audit events: got %d, want 1", n)
	}
}
