package taskstore_test

import (
	"testing"
	"time"

	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, err := store.Create(ctx, models.Task{
		TaskCode:    "task-abc",
		Title:       "Write docs",
		ProjectID:   primitive.NewObjectID(),
		WorkspaceID: primitive.NewObjectID(),
		CreatedBy:   primitive.NewObjectID(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != models.TaskStatusTodo {
		t.Errorf("Status: got %q, want todo", task.Status)
	}
	if task.Priority != models.TaskPriorityMedium {
		t.Errorf("Priority: got %q, want medium", task.Priority)
	}
}

func TestStore_List_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roles := fixtures.SeedRoles(ctx)
	owner, ws := fixtures.OwnedWorkspace(ctx, roles, "Owner", "owner@example.com")
	p1 := fixtures.CreateProject(ctx, ws.ID, owner.ID, "P1")
	p2 := fixtures.CreateProject(ctx, ws.ID, owner.ID, "P2")

	due := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	fixtures.CreateTask(ctx, p1, owner.ID, "Fix login bug", models.TaskStatusTodo, &due)
	fixtures.CreateTask(ctx, p1, owner.ID, "Design landing page", models.TaskStatusDone, nil)
	assigned := fixtures.CreateTask(ctx, p2, owner.ID, "Fix signup bug", models.TaskStatusInProgress, nil)
	if _, err := store.Update(ctx, assigned.ID, ws.ID, p2.ID, taskstore.Update{AssignedTo: &owner.ID}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Tasks in another workspace never leak into listings.
	otherProject := fixtures.CreateProject(ctx, primitive.NewObjectID(), owner.ID, "Other")
	fixtures.CreateTask(ctx, otherProject, owner.ID, "Fix other bug", models.TaskStatusTodo, nil)

	dueDay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		filter taskstore.Filter
		want   int
	}{
		{"all in workspace", taskstore.Filter{WorkspaceID: ws.ID}, 3},
		{"by project", taskstore.Filter{WorkspaceID: ws.ID, ProjectID: &p1.ID}, 2},
		{"by status", taskstore.Filter{WorkspaceID: ws.ID, Statuses: []string{models.TaskStatusTodo, models.TaskStatusInProgress}}, 2},
		{"by assignee", taskstore.Filter{WorkspaceID: ws.ID, AssigneeIDs: []primitive.ObjectID{owner.ID}}, 1},
		{"by keyword", taskstore.Filter{WorkspaceID: ws.ID, Keyword: "FIX"}, 2},
		{"by due date", taskstore.Filter{WorkspaceID: ws.ID, DueDate: &dueDay}, 1},
		{"by priority", taskstore.Filter{WorkspaceID: ws.ID, Priorities: []string{models.TaskPriorityHigh}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total, err := store.List(ctx, tt.filter, paging.Default())
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if int(total) != tt.want || len(rows) != tt.want {
				t.Errorf("got total=%d rows=%d, want %d", total, len(rows), tt.want)
			}
		})
	}

	rows, _, err := store.List(ctx, taskstore.Filter{WorkspaceID: ws.ID, AssigneeIDs: []primitive.ObjectID{owner.ID}}, paging.Default())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if rows[0].Assignee == nil || rows[0].Assignee.Name != "Owner" {
		t.Errorf("expected joined assignee, got %+v", rows[0].Assignee)
	}
	if rows[0].Project == nil || rows[0].Project.Name != "P2" {
		t.Errorf("expected joined project, got %+v", rows[0].Project)
	}
}

func TestStore_GetView(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	user := primitive.NewObjectID()
	p := fixtures.CreateProject(ctx, wsID, user, "Proj")
	task := fixtures.CreateTask(ctx, p, user, "One", models.TaskStatusTodo, nil)

	v, err := store.GetView(ctx, task.ID, wsID, p.ID)
	if err != nil {
		t.Fatalf("GetView failed: %v", err)
	}
	if v.ID != task.ID || v.Project == nil || v.Project.ID != p.ID {
		t.Errorf("unexpected view: %+v", v)
	}
	if v.Assignee != nil {
		t.Errorf("expected no assignee, got %+v", v.Assignee)
	}

	if _, err := store.GetView(ctx, task.ID, wsID, primitive.NewObjectID()); err != taskstore.ErrNotFound {
		t.Errorf("wrong project: expected ErrNotFound, got %v", err)
	}
}

func TestStore_Update_ClearFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	user := primitive.NewObjectID()
	p := fixtures.CreateProject(ctx, wsID, user, "Proj")
	due := time.Now().Add(48 * time.Hour)
	task := fixtures.CreateTask(ctx, p, user, "Clear me", models.TaskStatusTodo, &due)

	status := models.TaskStatusDone
	updated, err := store.Update(ctx, task.ID, wsID, p.ID, taskstore.Update{
		Status:       &status,
		AssignedTo:   &user,
		ClearDueDate: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != models.TaskStatusDone {
		t.Errorf("Status: got %q", updated.Status)
	}
	if updated.DueDate != nil {
		t.Errorf("expected due date cleared, got %v", updated.DueDate)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != user {
		t.Errorf("AssignedTo: got %v", updated.AssignedTo)
	}

	n, err := store.UnassignUser(ctx, wsID, user)
	if err != nil || n != 1 {
		t.Fatalf("UnassignUser: got %d, %v", n, err)
	}
	got, _ := store.Get(ctx, task.ID, wsID, nil)
	if got.AssignedTo != nil {
		t.Errorf("expected assignee cleared, got %v", got.AssignedTo)
	}

	if _, err := store.Update(ctx, task.ID, primitive.NewObjectID(), p.ID, taskstore.Update{Status: &status}); err != taskstore.ErrNotFound {
		t.Errorf("other workspace: expected ErrNotFound, got %v", err)
	}
}

func TestStore_Analytics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	user := primitive.NewObjectID()
	p1 := fixtures.CreateProject(ctx, wsID, user, "P1")
	p2 := fixtures.CreateProject(ctx, wsID, user, "P2")

	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	fixtures.CreateTask(ctx, p1, user, "overdue", models.TaskStatusTodo, &past)
	fixtures.CreateTask(ctx, p1, user, "done late", models.TaskStatusDone, &past)
	fixtures.CreateTask(ctx, p1, user, "upcoming", models.TaskStatusInProgress, &future)
	fixtures.CreateTask(ctx, p2, user, "other project overdue", models.TaskStatusBacklog, &past)

	ws, err := store.Analytics(ctx, wsID, nil, now)
	if err != nil {
		t.Fatalf("Analytics failed: %v", err)
	}
	if ws != (taskstore.Analytics{TotalTasks: 4, OverdueTasks: 2, CompletedTasks: 1}) {
		t.Errorf("workspace analytics: got %+v", ws)
	}

	proj, err := store.Analytics(ctx, wsID, &p1.ID, now)
	if err != nil {
		t.Fatalf("Analytics(project) failed: %v", err)
	}
	if proj != (taskstore.Analytics{TotalTasks: 3, OverdueTasks: 1, CompletedTasks: 1}) {
		t.Errorf("project analytics: got %+v", proj)
	}

	empty, err := store.Analytics(ctx, primitive.NewObjectID(), nil, now)
	if err != nil {
		t.Fatalf("Analytics(empty) failed: %v", err)
	}
	if empty != (taskstore.Analytics{}) {
		t.Errorf("empty analytics: got %+v", empty)
	}
}

func TestStore_DeleteCascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	user := primitive.NewObjectID()
	p1 := fixtures.CreateProject(ctx, wsID, user, "P1")
	p2 := fixtures.CreateProject(ctx, wsID, user, "P2")
	fixtures.CreateTask(ctx, p1, user, "a", models.TaskStatusTodo, nil)
	fixtures.CreateTask(ctx, p1, user, "b", models.TaskStatusTodo, nil)
	fixtures.CreateTask(ctx, p2, user, "c", models.TaskStatusTodo, nil)

	if n, err := store.DeleteByProject(ctx, p1.ID); err != nil || n != 2 {
		t.Fatalf("DeleteByProject: got %d, %v", n, err)
	}
	if n, err := store.DeleteByWorkspace(ctx, wsID); err != nil || n != 1 {
		t.Fatalf("DeleteByWorkspace: got %d, %v", n, err)
	}
}
