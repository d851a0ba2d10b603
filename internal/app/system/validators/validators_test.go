package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/validators"
	"github.com/dalemusser/taskhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	if err := validators.EnsureAll(ctx, db); err != nil {
		cancel()
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db, cancel
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db, cancel := setup(t)
	defer cancel()
	ctx, cancel2 := testutil.TestContext()
	defer cancel2()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db, cancel := setup(t)
	defer cancel()
	ctx, cancel2 := testutil.TestContext()
	defer cancel2()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "accounts", "roles", "workspaces", "members", "projects", "tasks", "login_records", "oauth_states", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db, cancel := setup(t)
	defer cancel()

	now := time.Now().UTC()
	id := primitive.NewObjectID

	task := func(mod func(bson.M)) bson.M {
		doc := bson.M{
			"task_code":    "task-a1b",
			"title":        "Ship it",
			"status":       "todo",
			"priority":     "medium",
			"project_id":   id(),
			"workspace_id": id(),
			"created_by":   id(),
			"created_at":   now,
		}
		if mod != nil {
			mod(doc)
		}
		return doc
	}

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"valid user", "users", bson.M{"name": "Alice", "email": "alice@example.com", "is_active": true, "created_at": now}, false},
		{"user missing is_active", "users", bson.M{"name": "Alice", "created_at": now}, true},
		{"valid account", "accounts", bson.M{"provider": "email", "provider_id": "alice@example.com", "user_id": id()}, false},
		{"account bad provider", "accounts", bson.M{"provider": "github", "provider_id": "x", "user_id": id()}, true},
		{"valid role", "roles", bson.M{"name": "admin", "permissions": bson.A{"view"}}, false},
		{"unknown role", "roles", bson.M{"name": "guest", "permissions": bson.A{}}, true},
		{"blank workspace name", "workspaces", bson.M{"name": "  ", "owner": id(), "invite_code": "abcd1234"}, true},
		{"valid member", "members", bson.M{"user_id": id(), "workspace_id": id(), "role_id": id(), "joined_at": now}, false},
		{"member missing role", "members", bson.M{"user_id": id(), "workspace_id": id(), "joined_at": now}, true},
		{"valid project", "projects", bson.M{"name": "Website", "emoji": "📊", "workspace_id": id(), "created_by": id()}, false},
		{"valid task", "tasks", task(nil), false},
		{"task bad status", "tasks", task(func(d bson.M) { d["status"] = "someday" }), true},
		{"task bad priority", "tasks", task(func(d bson.M) { d["priority"] = "urgent" }), true},
		{"task due date as string", "tasks", task(func(d bson.M) { d["due_date"] = "2030-01-02" }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := testutil.TestContext()
			defer cancel()
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("insert: got err %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
