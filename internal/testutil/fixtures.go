package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data. It writes to the
// collections directly so store tests can use it without import cycles.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// SeedRoles inserts one role per permission-table entry and returns them by name.
func (f *Fixtures) SeedRoles(ctx context.Context) map[string]models.Role {
	f.t.Helper()

	now := time.Now().UTC()
	out := make(map[string]models.Role, len(models.RoleNames))
	for _, name := range authz.Roles() {
		role := models.Role{
			ID:          primitive.NewObjectID(),
			Name:        name,
			Permissions: authz.PermissionsFor(name).Strings(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := f.db.Collection("roles").InsertOne(ctx, role); err != nil {
			f.t.Fatalf("failed to seed role %q: %v", name, err)
		}
		out[name] = role
	}
	return out
}

// CreateUser creates an active test user.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if email != "" {
		user.Email = &email
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateWorkspace creates a workspace owned by owner. It does not add
// the owner as a member; use AddMember for that.
func (f *Fixtures) CreateWorkspace(ctx context.Context, name string, owner primitive.ObjectID) models.Workspace {
	f.t.Helper()

	now := time.Now().UTC()
	ws := models.Workspace{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Workspace for tests",
		Owner:       owner,
		InviteCode:  primitive.NewObjectID().Hex()[16:] + primitive.NewObjectID().Hex()[18:],
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("workspaces").InsertOne(ctx, ws); err != nil {
		f.t.Fatalf("failed to create test workspace: %v", err)
	}
	return ws
}

// AddMember adds userID to wsID with role.
func (f *Fixtures) AddMember(ctx context.Context, userID, wsID primitive.ObjectID, role models.Role) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		WorkspaceID: wsID,
		RoleID:      role.ID,
		JoinedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to add test member: %v", err)
	}
	return m
}

// OwnedWorkspace creates a user, a workspace they own, and the owner membership.
func (f *Fixtures) OwnedWorkspace(ctx context.Context, roles map[string]models.Role, name, email string) (models.User, models.Workspace) {
	f.t.Helper()

	u := f.CreateUser(ctx, name, email)
	ws := f.CreateWorkspace(ctx, name+"'s Workspace", u.ID)
	f.AddMember(ctx, u.ID, ws.ID, roles[models.RoleOwner])
	return u, ws
}

// CreateProject creates a project in wsID.
func (f *Fixtures) CreateProject(ctx context.Context, wsID, createdBy primitive.ObjectID, name string) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Emoji:       models.DefaultProjectEmoji,
		WorkspaceID: wsID,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateTask creates a task in project p.
func (f *Fixtures) CreateTask(ctx context.Context, p models.Project, createdBy primitive.ObjectID, title, status string, due *time.Time) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		TaskCode:    "task-" + primitive.NewObjectID().Hex()[21:],
		Title:       title,
		TitleCI:     text.Fold(title),
		Status:      status,
		Priority:    models.TaskPriorityMedium,
		ProjectID:   p.ID,
		WorkspaceID: p.WorkspaceID,
		CreatedBy:   createdBy,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// Count returns the number of documents in collection matching filter
// (all documents when filter is nil).
func (f *Fixtures) Count(ctx context.Context, collection string, filter bson.M) int64 {
	f.t.Helper()

	if filter == nil {
		filter = bson.M{}
	}
	n, err := f.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		f.t.Fatalf("count %s failed: %v", collection, err)
	}
	return n
}
