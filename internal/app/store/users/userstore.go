// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts u. The email (when present) is normalized; a unique-index
// violation on it returns ErrDuplicateEmail. Pass a mongo.SessionContext as
// ctx to write inside a transaction.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	if u.Email != nil {
		e := normalize.Email(*u.Email)
		if e == "" {
			u.Email = nil
		} else {
			u.Email = &e
		}
	}
	u.Name = normalize.Name(u.Name)
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail loads a user by (normalized) email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, ErrNotFound
	}
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// EmailExists reports whether any user already has email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	email = normalize.Email(email)
	if email == "" {
		return false, nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetCurrentWorkspace points the user at wsID; a nil wsID clears it.
func (s *Store) SetCurrentWorkspace(ctx context.Context, id primitive.ObjectID, wsID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if wsID == nil {
		update["$unset"] = bson.M{"current_workspace": ""}
	} else {
		update["$set"].(bson.M)["current_workspace"] = *wsID
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCurrentWorkspace unsets current_workspace on every user pointing at
// wsID. Used when a workspace is deleted.
func (s *Store) ClearCurrentWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"current_workspace": wsID},
		bson.M{
			"$unset": bson.M{"current_workspace": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UpdateLastLogin records a successful sign-in.
func (s *Store) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login": at.UTC()}})
	return err
}
