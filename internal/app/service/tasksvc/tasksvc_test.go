package tasksvc_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskhub/internal/app/service/tasksvc"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	fixtures *testutil.Fixtures
	roles    map[string]models.Role
	svc      *tasksvc.Service
	owner    models.User
	ws       models.Workspace
	project  models.Project
}

func setup(t *testing.T) (*env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	e := &env{fixtures: testutil.NewFixtures(t, db)}
	e.roles = e.fixtures.SeedRoles(ctx)
	e.svc = tasksvc.New(db, memberpolicy.NewFromDB(db), zap.NewNop())
	e.owner, e.ws = e.fixtures.OwnedWorkspace(ctx, e.roles, "Alice", "alice@example.com")
	e.project = e.fixtures.CreateProject(ctx, e.ws.ID, e.owner.ID, "Website")
	return e, ctx
}

func (e *env) member(ctx context.Context, name, role string) models.User {
	u := e.fixtures.CreateUser(ctx, name, name+"@example.com")
	e.fixtures.AddMember(ctx, u.ID, e.ws.ID, e.roles[role])
	return u
}

func strPtr(s string) *string { return &s }

func TestNewTaskCode(t *testing.T) {
	re := regexp.MustCompile(`^task-[0-9a-z]{3}$`)
	for i := 0; i < 200; i++ {
		if code := tasksvc.NewTaskCode(); !re.MatchString(code) {
			t.Fatalf("NewTaskCode() = %q, want task- plus 3 base-36 chars", code)
		}
	}
}

func TestCreate(t *testing.T) {
	e, ctx := setup(t)
	bob := e.member(ctx, "bob", models.RoleMember)
	due := time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC)

	task, err := e.svc.Create(ctx, bob.ID, e.ws.ID, e.project.ID, tasksvc.CreateInput{
		Title:      " Ship it ",
		AssignedTo: &e.owner.ID,
		DueDate:    &due,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Title != "Ship it" {
		t.Errorf("Title: got %q", task.Title)
	}
	if task.Status != models.TaskStatusTodo || task.Priority != models.TaskPriorityMedium {
		t.Errorf("defaults: got %s/%s, want todo/medium", task.Status, task.Priority)
	}
	if task.CreatedBy != bob.ID || task.ProjectID != e.project.ID || task.WorkspaceID != e.ws.ID {
		t.Error("task ownership fields not set")
	}
	if task.AssignedTo == nil || *task.AssignedTo != e.owner.ID {
		t.Errorf("AssignedTo: got %v", task.AssignedTo)
	}
	if len(task.TaskCode) != len("task-abc") {
		t.Errorf("TaskCode: got %q", task.TaskCode)
	}
}

func TestCreate_Errors(t *testing.T) {
	e, ctx := setup(t)
	outsider := e.fixtures.CreateUser(ctx, "Eve", "eve@example.com")
	other, otherWS := e.fixtures.OwnedWorkspace(ctx, e.roles, "Bob", "bob@example.com")
	foreignProject := e.fixtures.CreateProject(ctx, otherWS.ID, other.ID, "Foreign")

	tests := []struct {
		name      string
		userID    primitive.ObjectID
		projectID primitive.ObjectID
		input     tasksvc.CreateInput
		wantKind  apperr.Kind
	}{
		{"non-member", outsider.ID, e.project.ID, tasksvc.CreateInput{Title: "x"}, apperr.KindForbidden},
		{"project of another workspace", e.owner.ID, foreignProject.ID, tasksvc.CreateInput{Title: "x"}, apperr.KindNotFound},
		{"assignee not a member", e.owner.ID, e.project.ID, tasksvc.CreateInput{Title: "x", AssignedTo: &outsider.ID}, apperr.KindValidation},
		{"bad status", e.owner.ID, e.project.ID, tasksvc.CreateInput{Title: "x", Status: "someday"}, apperr.KindValidation},
		{"bad priority", e.owner.ID, e.project.ID, tasksvc.CreateInput{Title: "x", Priority: "urgent"}, apperr.KindValidation},
		{"blank title", e.owner.ID, e.project.ID, tasksvc.CreateInput{Title: " "}, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(ctx, tt.userID, e.ws.ID, tt.projectID, tt.input)
			if !apperr.Is(err, tt.wantKind) {
				t.Fatalf("expected %s, got %v", tt.wantKind, err)
			}
		})
	}
	if n := e.fixtures.Count(ctx, "tasks", nil); n != 0 {
		t.Errorf("tasks: got %d, want 0", n)
	}
}

func TestUpdate(t *testing.T) {
	e, ctx := setup(t)
	bob := e.member(ctx, "bob", models.RoleMember)
	due := time.Now().UTC().Add(24 * time.Hour)
	task := e.fixtures.CreateTask(ctx, e.project, e.owner.ID, "Draft", models.TaskStatusTodo, &due)

	got, err := e.svc.Update(ctx, bob.ID, e.ws.ID, e.project.ID, task.ID, tasksvc.UpdateInput{
		Status:       strPtr(models.TaskStatusInProgress),
		AssignedTo:   &bob.ID,
		ClearDueDate: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Status != models.TaskStatusInProgress {
		t.Errorf("Status: got %q", got.Status)
	}
	if got.AssignedTo == nil || *got.AssignedTo != bob.ID {
		t.Errorf("AssignedTo: got %v", got.AssignedTo)
	}
	if got.DueDate != nil {
		t.Errorf("DueDate: got %v, want cleared", got.DueDate)
	}
	if got.Title != "Draft" {
		t.Errorf("Title changed: got %q", got.Title)
	}
}

func TestUpdate_Errors(t *testing.T) {
	e, ctx := setup(t)
	task := e.fixtures.CreateTask(ctx, e.project, e.owner.ID, "Draft", models.TaskStatusTodo, nil)
	other := e.fixtures.CreateProject(ctx, e.ws.ID, e.owner.ID, "Other")

	tests := []struct {
		name      string
		projectID primitive.ObjectID
		input     tasksvc.UpdateInput
		wantKind  apperr.Kind
	}{
		{"wrong project", other.ID, tasksvc.UpdateInput{Title: strPtr("x")}, apperr.KindNotFound},
		{"empty status", e.project.ID, tasksvc.UpdateInput{Status: strPtr("")}, apperr.KindValidation},
		{"blank title", e.project.ID, tasksvc.UpdateInput{Title: strPtr("  ")}, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Update(ctx, e.owner.ID, e.ws.ID, tt.projectID, task.ID, tt.input)
			if !apperr.Is(err, tt.wantKind) {
				t.Fatalf("expected %s, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestList_Filters(t *testing.T) {
	e, ctx := setup(t)
	second := e.fixtures.CreateProject(ctx, e.ws.ID, e.owner.ID, "Second")
	due := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	e.fixtures.CreateTask(ctx, e.project, e.owner.ID, "Write docs", models.TaskStatusTodo, &due)
	e.fixtures.CreateTask(ctx, e.project, e.owner.ID, "Fix login", models.TaskStatusDone, nil)
	e.fixtures.CreateTask(ctx, second, e.owner.ID, "Docs review", models.TaskStatusInReview, nil)

	tests := []struct {
		name   string
		filter tasksvc.ListFilter
		want   int
	}{
		{"all", tasksvc.ListFilter{}, 3},
		{"project", tasksvc.ListFilter{ProjectID: &second.ID}, 1},
		{"statuses", tasksvc.ListFilter{Statuses: []string{models.TaskStatusTodo, models.TaskStatusDone}}, 2},
		{"keyword", tasksvc.ListFilter{Keyword: "  DOCS "}, 2},
		{"due date same day", tasksvc.ListFilter{DueDate: &due}, 1},
		{"priority none match", tasksvc.ListFilter{Priorities: []string{models.TaskPriorityHigh}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := e.svc.List(ctx, e.owner.ID, e.ws.ID, tt.filter, paging.Default())
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(page.Tasks) != tt.want || page.Pagination.TotalCount != int64(tt.want) {
				t.Errorf("got %d tasks (total %d), want %d", len(page.Tasks), page.Pagination.TotalCount, tt.want)
			}
		})
	}
}

func TestGet_JoinsProject(t *testing.T) {
	e, ctx := setup(t)
	task := e.fixtures.CreateTask(ctx, e.project, e.owner.ID, "Draft", models.TaskStatusTodo, nil)

	view, err := e.svc.Get(ctx, e.owner.ID, e.ws.ID, e.project.ID, task.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if view.Project == nil || view.Project.Name != "Website" {
		t.Errorf("Project: got %+v", view.Project)
	}
	if view.Assignee != nil {
		t.Errorf("Assignee: got %+v, want nil", view.Assignee)
	}
}

func TestDelete(t *testing.T) {
	e, ctx := setup(t)
	task := e.fixtures.CreateTask(ctx, e.project, e.owner.ID, "Draft", models.TaskStatusTodo, nil)
	bob := e.member(ctx, "bob", models.RoleMember)

	if err := e.svc.Delete(ctx, bob.ID, e.ws.ID, task.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("member delete: expected forbidden, got %v", err)
	}
	if err := e.svc.Delete(ctx, e.owner.ID, e.ws.ID, task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n := e.fixtures.Count(ctx, "tasks", bson.M{"_id": task.ID}); n != 0 {
		t.Error("task still exists")
	}
	if err := e.svc.Delete(ctx, e.owner.ID, e.ws.ID, task.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}
