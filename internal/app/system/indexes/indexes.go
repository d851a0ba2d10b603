// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/store/audit"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup (EnsureSchema hook). Each ensure* function is
idempotent. Errors are aggregated so every problem is visible and startup
can fail fast.

The unique indexes here are what make concurrent onboarding safe: two
registrations racing on the same email, or two external logins racing on
the same provider identity, cannot both commit.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"accounts", ensureAccounts},
		{"roles", ensureRoles},
		{"workspaces", ensureWorkspaces},
		{"members", ensureMembers},
		{"projects", ensureProjects},
		{"tasks", ensureTasks},
		{"oauth_states", ensureOAuthStates},
		{"login_records", ensureLoginRecords},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return boolVal(a) == boolVal(b)
}

func boolVal(p *bool) bool {
	return p != nil && *p
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// duplicateHint gives an operator something to run when a unique index
// cannot be built because the data already violates it.
func duplicateHint(coll, sig string) string {
	field := ""
	switch {
	case coll == "users" && strings.Contains(sig, "email:1"):
		field = "email"
	case coll == "workspaces" && strings.Contains(sig, "invite_code:1"):
		field = "invite_code"
	case coll == "roles" && strings.Contains(sig, "name:1"):
		field = "name"
	default:
		return ""
	}
	return fmt.Sprintf(" (duplicates exist on %s.%s; finder: db.%s.aggregate([{ $group: { _id: \"$%s\", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }]))",
		coll, field, coll, field)
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// create builds m and turns a duplicate-key failure on a unique index into
// an operator-readable message.
func create(ctx context.Context, coll *mongo.Collection, m mongo.IndexModel, name, sig string, unique bool) error {
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		if unique && isDuplicateKeyErr(err) {
			return fmt.Errorf("%s(%s): cannot create unique index%s", coll.Name(), name, duplicateHint(coll.Name(), sig))
		}
		return fmt.Errorf("%s(%s): %w", coll.Name(), name, err)
	}
	return nil
}

// replace drops the index called old and creates m in its place.
func replace(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel, name, sig string, unique bool) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		zap.L().Warn("drop existing index failed",
			zap.String("collection", coll.Name()),
			zap.String("name", old),
			zap.Error(err))
		return fmt.Errorf("%s(%s): drop failed: %w", coll.Name(), name, err)
	}
	return create(ctx, coll, m, name, sig, unique)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		unique := boolVal(desiredUnique)
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique))
		log.Debug("ensuring index")

		existing := listExisting(ctx, coll)

		if ex, ok := existing[desiredSig]; ok {
			switch {
			case sameBoolPtr(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName):
				log.Debug("reusing existing index", zap.Duration("took", time.Since(start)))
			case sameBoolPtr(desiredUnique, ex.Unique):
				if err := replace(ctx, coll, ex.Name, m, desiredName, desiredSig, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index renamed", zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))
			default:
				// Options changed (for example upgrading to unique).
				if err := replace(ctx, coll, ex.Name, m, desiredName, desiredSig, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index dropped and recreated", zap.Duration("took", time.Since(start)))
			}
			continue
		}

		err := create(ctx, coll, m, desiredName, desiredSig, unique)
		if err != nil && isOptionsConflictErr(err) {
			// Another index with the same keys appeared between List and Create.
			if match, ok := listExisting(ctx, coll)[desiredSig]; ok {
				if sameBoolPtr(desiredUnique, match.Unique) {
					log.Info("reusing existing index (post-conflict)", zap.String("existing", match.Name))
					continue
				}
				err = replace(ctx, coll, match.Name, m, desiredName, desiredSig, unique)
			}
		}
		if err != nil {
			log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
			errs = append(errs, err.Error())
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		// Email is optional (external identities may not carry one), so the
		// uniqueness only applies to documents that have a string email.
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_users_email").
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "current_workspace", Value: 1}},
			Options: options.Index().SetName("idx_users_current_workspace"),
		},
	})
}

func ensureAccounts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("accounts"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_accounts_provider_id"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_accounts_user"),
		},
	})
}

func ensureRoles(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("roles"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_roles_name"),
		},
	})
}

func ensureWorkspaces(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("workspaces"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "invite_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_workspaces_invite_code"),
		},
		{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetName("idx_workspaces_owner"),
		},
	})
}

func ensureMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("members"), []mongo.IndexModel{
		// One membership per (user, workspace); also serves the role lookup.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "workspace_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_members_user_workspace"),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "joined_at", Value: 1}},
			Options: options.Index().SetName("idx_members_workspace_joined"),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("projects"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_projects_workspace_created"),
		},
	})
}

func ensureTasks(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("tasks"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "project_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_tasks_workspace_project_created"),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "assigned_to", Value: 1}},
			Options: options.Index().SetName("idx_tasks_workspace_assignee"),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "status", Value: 1}, {Key: "due_date", Value: 1}},
			Options: options.Index().SetName("idx_tasks_workspace_status_due"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_states_state"),
		},
		// TTL removes abandoned states even if the cleanup job is disabled.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauth_states_expires"),
		},
	})
}

func ensureLoginRecords(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("login_records"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_login_records_user_created"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(models.LoginRecordRetention.Seconds())).
				SetName("ttl_login_records_created"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_workspace_time"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_time"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_type_time"),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(audit.Retention.Seconds())).
				SetName("ttl_audit_events_timestamp"),
		},
	})
}
