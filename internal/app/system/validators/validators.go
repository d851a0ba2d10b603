// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/taskhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("accounts", accountsSchema())
	ensure("roles", rolesSchema())
	ensure("workspaces", workspacesSchema())
	ensure("members", membersSchema())
	ensure("projects", projectsSchema())
	ensure("tasks", tasksSchema())

	// Collections without validators; TTL indexes govern their lifetime.
	ensure("login_records", nil)
	ensure("oauth_states", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values []string) bson.A {
	out := bson.A{}
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "is_active", "created_at"},
			"properties": bson.M{
				"name":              bson.M{"bsonType": "string"},
				"email":             bson.M{"bsonType": "string", "minLength": 3},
				"password_hash":     bson.M{"bsonType": "string"},
				"profile_picture":   bson.M{"bsonType": "string"},
				"current_workspace": bson.M{"bsonType": "objectId"},
				"is_active":         bson.M{"bsonType": "bool"},
				"last_login":        bson.M{"bsonType": "date"},
				"created_at":        bson.M{"bsonType": "date"},
			},
		},
	}
}

func accountsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"provider", "provider_id", "user_id"},
			"properties": bson.M{
				"provider":    bson.M{"enum": enum([]string{models.ProviderEmail, models.ProviderGoogle})},
				"provider_id": nonBlank,
				"user_id":     bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func rolesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "permissions"},
			"properties": bson.M{
				"name":        bson.M{"enum": enum(models.RoleNames)},
				"permissions": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func workspacesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "owner", "invite_code"},
			"properties": bson.M{
				"name":        nonBlank,
				"owner":       bson.M{"bsonType": "objectId"},
				"invite_code": nonBlank,
				"description": bson.M{"bsonType": "string"},
			},
		},
	}
}

func membersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "workspace_id", "role_id", "joined_at"},
			"properties": bson.M{
				"user_id":      bson.M{"bsonType": "objectId"},
				"workspace_id": bson.M{"bsonType": "objectId"},
				"role_id":      bson.M{"bsonType": "objectId"},
				"joined_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "workspace_id", "created_by"},
			"properties": bson.M{
				"name":         nonBlank,
				"emoji":        bson.M{"bsonType": "string"},
				"description":  bson.M{"bsonType": "string"},
				"workspace_id": bson.M{"bsonType": "objectId"},
				"created_by":   bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func tasksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"task_code", "title", "status", "priority", "project_id", "workspace_id", "created_by"},
			"properties": bson.M{
				"task_code":    nonBlank,
				"title":        nonBlank,
				"description":  bson.M{"bsonType": "string"},
				"status":       bson.M{"enum": enum(models.TaskStatuses)},
				"priority":     bson.M{"enum": enum(models.TaskPriorities)},
				"assigned_to":  bson.M{"bsonType": "objectId"},
				"project_id":   bson.M{"bsonType": "objectId"},
				"workspace_id": bson.M{"bsonType": "objectId"},
				"created_by":   bson.M{"bsonType": "objectId"},
				"due_date":     bson.M{"bsonType": "date"},
			},
		},
	}
}
