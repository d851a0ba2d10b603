// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("member not found")
	ErrAlreadyMember = errors.New("user is already a member of this workspace")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

// Create adds a membership. JoinedAt defaults to now.
func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Member{}, ErrAlreadyMember
		}
		return models.Member{}, err
	}
	return m, nil
}

// Get returns the membership of userID in wsID.
func (s *Store) Get(ctx context.Context, userID, wsID primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "workspace_id": wsID}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// WorkspaceIDsForUser lists the workspaces userID belongs to, in join order.
func (s *Store) WorkspaceIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetProjection(bson.M{"workspace_id": 1}).
			SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			WorkspaceID primitive.ObjectID `bson:"workspace_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.WorkspaceID)
	}
	return ids, cur.Err()
}

// ListViews returns the members of wsID joined with their user summary and
// role, in join order.
func (s *Store) ListViews(ctx context.Context, wsID primitive.ObjectID) ([]models.MemberView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"workspace_id": wsID}}},
		{{Key: "$sort", Value: bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "roles",
			"localField":   "role_id",
			"foreignField": "_id",
			"as":           "role",
		}}},
		{{Key: "$unwind", Value: "$role"}},
		{{Key: "$project", Value: bson.M{
			"workspace_id":         1,
			"joined_at":            1,
			"user._id":             1,
			"user.name":            1,
			"user.email":           1,
			"user.profile_picture": 1,
			"role":                 1,
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.MemberView{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRole sets the role of userID in wsID.
func (s *Store) UpdateRole(ctx context.Context, userID, wsID, roleID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "workspace_id": wsID},
		bson.M{"$set": bson.M{"role_id": roleID, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the membership of userID in wsID.
func (s *Store) Delete(ctx context.Context, userID, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByWorkspace removes every membership of wsID.
func (s *Store) DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// IsMember reports whether userID belongs to wsID.
func (s *Store) IsMember(ctx context.Context, userID, wsID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx,
		bson.M{"user_id": userID, "workspace_id": wsID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
