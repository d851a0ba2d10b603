// internal/app/store/roles/rolestore.go
package rolestore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("role not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("roles")}
}

// GetByName loads the role called name.
func (s *Store) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return s.findOne(ctx, bson.M{"name": name})
}

// GetByID loads a role by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Role, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Role, error) {
	var r models.Role
	if err := s.c.FindOne(ctx, filter).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// List returns all roles ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Role, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Role
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Seed upserts one role per entry of table, keyed by name. Existing roles
// keep their _id so member references survive a re-seed; only the
// permission list is refreshed. Pass a mongo.SessionContext to seed
// atomically.
func (s *Store) Seed(ctx context.Context, table map[string][]string) ([]models.Role, error) {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	out := make([]models.Role, 0, len(names))
	for _, name := range names {
		perms := table[name]
		if perms == nil {
			perms = []string{}
		}
		var r models.Role
		err := s.c.FindOneAndUpdate(ctx,
			bson.M{"name": name},
			bson.M{
				"$set":         bson.M{"permissions": perms, "updated_at": now},
				"$setOnInsert": bson.M{"created_at": now},
			},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&r)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
