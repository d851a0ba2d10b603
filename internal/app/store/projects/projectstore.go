// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("project not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// Create inserts p. An empty Emoji gets the default.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.NameCI = text.Fold(p.Name)
	if p.Emoji == "" {
		p.Emoji = models.DefaultProjectEmoji
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Get loads project id, scoped to wsID so a project id from another
// workspace is indistinguishable from a missing one.
func (s *Store) Get(ctx context.Context, id, wsID primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "workspace_id": wsID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// List returns one page of the projects in wsID, newest first, and the
// total number of projects in the workspace.
func (s *Store) List(ctx context.Context, wsID primitive.ObjectID, page paging.Params) ([]models.Project, int64, error) {
	filter := bson.M{"workspace_id": wsID}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update holds the editable project fields. Nil fields are left alone.
type Update struct {
	Name        *string
	Emoji       *string
	Description *string
}

// Update applies upd to project id in wsID and returns the result.
func (s *Store) Update(ctx context.Context, id, wsID primitive.ObjectID, upd Update) (models.Project, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
		set["name_ci"] = text.Fold(*upd.Name)
	}
	if upd.Emoji != nil {
		set["emoji"] = *upd.Emoji
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}

	var p models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "workspace_id": wsID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// Delete removes project id from wsID.
func (s *Store) Delete(ctx context.Context, id, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByWorkspace removes every project in wsID.
func (s *Store) DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
