package projects_test

import (
	"context"
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/features/projects"
	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskhub/internal/app/service/projectsvc"
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
	svc := projectsvc.New(db, memberpolicy.NewFromDB(db), txn.New(db.Client(), logger), logger)
	h := projects.NewHandler(svc, uierrors.NewErrorLogger(logger), logger)

	e := &env{router: projects.Routes(h), fixtures: testutil.NewFixtures(t, db)}
	e.roles = e.fixtures.SeedRoles(ctx)
	e.owner, e.ws = e.fixtures.OwnedWorkspace(ctx, e.roles, "Alice", "alice@example.com")
	return e, ctx
}

func (e *env) do(t *testing.T, u models.User, method, target string, body any) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.WithUser(testutil.NewJSONRequest(t, method, target, body), u))
	return rec
}

func TestHandleCreate(t *testing.T) {
	e, ctx := setup(t)
	bob := e.fixtures.CreateUser(ctx, "Bob", "bob@example.com")
	e.fixtures.AddMember(ctx, bob.ID, e.ws.ID, e.roles[models.RoleMember])
	target := "/workspace/" + e.ws.ID.Hex() + "/create"

	rec := e.do(t, e.owner, http.MethodPost, target, map[string]string{"name": "Website", "description": "Relaunch"})
	rec.AssertStatus(t, http.StatusCreated)
	var resp struct {
		Project struct {
			Name      string `json:"name"`
			Emoji     string `json:"emoji"`
			Workspace string `json:"workspace"`
		} `json:"project"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.Project.Name != "Website" || resp.Project.Workspace != e.ws.ID.Hex() {
		t.Errorf("project: got %+v", resp.Project)
	}
	if resp.Project.Emoji != models.DefaultProjectEmoji {
		t.Errorf("emoji: got %q, want default", resp.Project.Emoji)
	}

	tests := []struct {
		name       string
		user       models.User
		target     string
		body       any
		wantStatus int
	}{
		{"member cannot create", bob, target, map[string]string{"name": "Side"}, http.StatusForbidden},
		{"missing name", e.owner, target, map[string]string{"emoji": "x"}, http.StatusBadRequest},
		{"malformed json", e.owner, target, `{"name":`, http.StatusBadRequest},
		{"bad workspace id", e.owner, "/workspace/xyz/create", map[string]string{"name": "Side"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.do(t, tt.user, http.MethodPost, tt.target, tt.body).AssertStatus(t, tt.wantStatus)
		})
	}
	if n := e.fixtures.Count(ctx, "projects", nil); n != 1 {
		t.Errorf("projects: got %d, want 1", n)
	}
}

func TestServeList_Paginates(t *testing.T) {
	e, ctx := setup(t)
	for _, name := range []string{"A", "B", "C"} {
		e.fixtures.CreateProject(ctx, e.ws.ID, e.owner.ID, name)
	}

	rec := e.do(t, e.owner, http.MethodGet, "/workspace/"+e.ws.ID.Hex()+"/all?pageSize=2&pageNumber=2", nil)
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Projects   []struct{} `json:"projects"`
		Pagination struct {
			TotalCount int64 `json:"totalCount"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	rec.DecodeJSON(t, &resp)
	if len(resp.Projects) != 1 || resp.Pagination.TotalCount != 3 || resp.Pagination.TotalPages != 2 {
		t.Errorf("page: got %d projects, %+v", len(resp.Projects), resp.Pagination)
	}
}

func TestServeGet(t *testing.T) {
	e, ctx := setup(t)
	p := e.fixtures.CreateProject(ctx, e.ws.ID, e.owner.ID, "Website")
	other, otherWS := e.fixtures.OwnedWorkspace(ctx, e.roles, "Bob", "bob@example.com")
	foreign := e.fixtures.CreateProject(ctx, otherWS.ID, other.ID, "Foreign")

	tests := []struct {
		name       string
		user       models.User
		target     string
		wantStatus int
	}{
		{"get", e.owner, "/" + p.ID.Hex() + "/workspace/" + e.ws.ID.Hex(), http.StatusOK},
		{"analytics", e.owner, "/" + p.ID.Hex() + "/workspace/" + e.ws.ID.Hex() + "/analytics", http.StatusOK},
		{"project of another workspace", e.owner, "/" + foreign.ID.Hex() + "/workspace/" + e.ws.ID.Hex(), http.StatusNotFound},
		{"non-member", other, "/" + p.ID.Hex() + "/workspace/" + e.ws.ID.Hex(), http.StatusForbidden},
		{"bad project id", e.owner, "/nope/workspace/" + e.ws.ID.Hex(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.do(t, tt.user, http.MethodGet, tt.target, nil).AssertStatus(t, tt.wantStatus)
		})
	}
}

func TestHandleUpdate(t *testing.T) {
	e, ctx := setup(t)
	p := e.fixtures.CreateProject(ctx, e.ws.ID, e.owner.ID, "Website")
	target := "/" + p.ID.Hex() + "/workspace/" + e.ws.ID.Hex() + "/update"

	rec := e.do(t, e.owner, http.MethodPut, target, map[string]string{"emoji": "🚀"})
	rec.AssertStatus(t, http.StatusOK)
	var resp struct {
		Project struct {
			Name  string `json:"name"`
			Emoji string `json:"emoji"`
		} `json:"project"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.Project.Name != "Website" || resp.Project.Emoji != "🚀" {
		t.Errorf("project: got %+v", resp.Project)
	}

	e.do(t, e.owner, http.MethodPut, target, map[string]string{"name": "  "}).AssertStatus(t, http.StatusBadRequest)
}

func TestHandleDelete(t *testing.T) {
	e, ctx := setup(t)
	testutil.RequireTransactions(t, e.fixtures.DB())
	p := e.fixtures.CreateProject(ctx, e.ws.ID, e.owner.ID, "Website")
	e.fixtures.CreateTask(ctx, p, e.owner.ID, "Draft", models.TaskStatusTodo, nil)
	target := "/" + p.ID.Hex() + "/workspace/" + e.ws.ID.Hex() + "/delete"

	e.do(t, e.owner, http.MethodDelete, target, nil).AssertStatus(t, http.StatusOK)
	if n := e.fixtures.Count(ctx, "tasks", bson.M{"project_id": p.ID}); n != 0 {
		t.Errorf("tasks: got %d, want 0", n)
	}
	e.do(t, e.owner, http.MethodDelete, target, nil).AssertStatus(t, http.StatusNotFound)
}
