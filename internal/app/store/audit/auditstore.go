// internal/app/store/audit/auditstore.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth      = "auth"
	CategoryWorkspace = "workspace"
)

// Auth event types
const (
	EventLoginSuccess     = "login_success"
	EventLoginFailed      = "login_failed"
	EventLoginRateLimited = "login_rate_limited"
	EventLogout           = "logout"
)

// Workspace event types
const (
	EventWorkspaceCreated  = "workspace_created"
	EventWorkspaceUpdated  = "workspace_updated"
	EventWorkspaceDeleted  = "workspace_deleted"
	EventMemberJoined      = "member_joined"
	EventMemberRoleChanged = "member_role_changed"
	EventMemberRemoved     = "member_removed"
)

// Retention is how long audit events are kept before the TTL index
// removes them.
const Retention = 180 * 24 * time.Hour

// Event is one audited action.
type Event struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Timestamp   time.Time           `bson:"timestamp" json:"timestamp"`
	WorkspaceID *primitive.ObjectID `bson:"workspace_id,omitempty" json:"workspaceId,omitempty"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"eventType"`

	// UserID is the affected user; ActorID is who acted, when different.
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actorId,omitempty"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter narrows Query. Zero values match everything.
type QueryFilter struct {
	WorkspaceID *primitive.ObjectID
	UserID      *primitive.ObjectID
	Category    string
	EventType   string
	Since       *time.Time
	Limit       int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns events matching f, newest first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	query := bson.M{}
	if f.WorkspaceID != nil {
		query["workspace_id"] = *f.WorkspaceID
	}
	if f.UserID != nil {
		query["user_id"] = *f.UserID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.Since != nil {
		query["timestamp"] = bson.M{"$gte": *f.Since}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetByUser returns the most recent events affecting userID.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{UserID: &userID, Limit: limit})
}

// GetByWorkspace returns the most recent events recorded against wsID.
func (s *Store) GetByWorkspace(ctx context.Context, wsID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{WorkspaceID: &wsID, Limit: limit})
}

// CountFailedLogins counts failed and throttled sign-ins since the given time.
func (s *Store) CountFailedLogins(ctx context.Context, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"category":   CategoryAuth,
		"event_type": bson.M{"$in": bson.A{EventLoginFailed, EventLoginRateLimited}},
		"timestamp":  bson.M{"$gte": since},
	})
}
