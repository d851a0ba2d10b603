// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/app/system/search"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("task not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Create inserts t. The caller supplies TaskCode.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.TitleCI = text.Fold(t.Title)
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = models.TaskPriorityMedium
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Get loads task id, scoped to wsID. A non-nil projectID narrows the scope
// to that project.
func (s *Store) Get(ctx context.Context, id, wsID primitive.ObjectID, projectID *primitive.ObjectID) (models.Task, error) {
	filter := bson.M{"_id": id, "workspace_id": wsID}
	if projectID != nil {
		filter["project_id"] = *projectID
	}
	var t models.Task
	if err := s.c.FindOne(ctx, filter).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	return t, nil
}

// GetView loads task id with its assignee and project joined.
func (s *Store) GetView(ctx context.Context, id, wsID, projectID primitive.ObjectID) (models.TaskView, error) {
	match := bson.M{"_id": id, "workspace_id": wsID, "project_id": projectID}
	pipeline := append(mongo.Pipeline{{{Key: "$match", Value: match}}}, joinStages()...)

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return models.TaskView{}, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return models.TaskView{}, err
		}
		return models.TaskView{}, ErrNotFound
	}
	var v models.TaskView
	if err := cur.Decode(&v); err != nil {
		return models.TaskView{}, err
	}
	return v, nil
}

// Filter narrows a task listing. Empty fields do not filter.
type Filter struct {
	WorkspaceID primitive.ObjectID
	ProjectID   *primitive.ObjectID
	Statuses    []string
	Priorities  []string
	AssigneeIDs []primitive.ObjectID
	Keyword     string
	// DueDate matches tasks due on the same UTC day.
	DueDate *time.Time
}

func (f Filter) query() bson.M {
	q := bson.M{"workspace_id": f.WorkspaceID}
	if f.ProjectID != nil {
		q["project_id"] = *f.ProjectID
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	if len(f.Priorities) > 0 {
		q["priority"] = bson.M{"$in": f.Priorities}
	}
	if len(f.AssigneeIDs) > 0 {
		q["assigned_to"] = bson.M{"$in": f.AssigneeIDs}
	}
	if kw := search.Contains("title_ci", f.Keyword); kw != nil {
		for k, v := range kw {
			q[k] = v
		}
	}
	if f.DueDate != nil {
		d := f.DueDate.UTC()
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		q["due_date"] = bson.M{"$gte": start, "$lt": start.Add(24 * time.Hour)}
	}
	return q
}

// List returns one page of tasks matching f, newest first, with the total
// number of matches.
func (s *Store) List(ctx context.Context, f Filter, page paging.Params) ([]models.TaskView, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: q}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.PageSize)}},
	}
	pipeline = append(pipeline, joinStages()...)

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.TaskView{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// joinStages attaches the assignee summary and project summary.
func joinStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "assigned_to",
			"foreignField": "_id",
			"as":           "assignee",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$assignee", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "projects",
			"localField":   "project_id",
			"foreignField": "_id",
			"as":           "project",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$project", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"assignee.password_hash":     0,
			"assignee.current_workspace": 0,
			"assignee.is_active":         0,
			"assignee.last_login":        0,
			"assignee.created_at":        0,
			"assignee.updated_at":        0,
			"project.name_ci":            0,
			"project.description":        0,
			"project.workspace_id":       0,
			"project.created_by":         0,
			"project.created_at":         0,
			"project.updated_at":         0,
		}}},
	}
}

// Update holds the editable task fields. Nil fields are left alone;
// ClearAssignee and ClearDueDate unset the corresponding field.
type Update struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	AssignedTo    *primitive.ObjectID
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
}

// Update applies upd to task id in (wsID, projectID) and returns the result.
func (s *Store) Update(ctx context.Context, id, wsID, projectID primitive.ObjectID, upd Update) (models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if upd.Title != nil {
		set["title"] = *upd.Title
		set["title_ci"] = text.Fold(*upd.Title)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	switch {
	case upd.ClearAssignee:
		unset["assigned_to"] = ""
	case upd.AssignedTo != nil:
		set["assigned_to"] = *upd.AssignedTo
	}
	switch {
	case upd.ClearDueDate:
		unset["due_date"] = ""
	case upd.DueDate != nil:
		set["due_date"] = upd.DueDate.UTC()
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var t models.Task
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "workspace_id": wsID, "project_id": projectID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	return t, nil
}

// Delete removes task id from wsID.
func (s *Store) Delete(ctx context.Context, id, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByProject removes every task of projectID.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByWorkspace removes every task of wsID.
func (s *Store) DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UnassignUser clears the assignee on tasks in wsID assigned to userID.
// Used when a member leaves or is removed.
func (s *Store) UnassignUser(ctx context.Context, wsID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"workspace_id": wsID, "assigned_to": userID},
		bson.M{"$unset": bson.M{"assigned_to": ""}, "$set": bson.M{"updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Analytics summarizes tasks for a workspace or project.
type Analytics struct {
	TotalTasks     int64 `json:"totalTasks"`
	OverdueTasks   int64 `json:"overdueTasks"`
	CompletedTasks int64 `json:"completedTasks"`
}

// Analytics counts tasks in wsID (or only projectID when non-nil). A task
// is overdue when its due date is before now and it is not done.
func (s *Store) Analytics(ctx context.Context, wsID primitive.ObjectID, projectID *primitive.ObjectID, now time.Time) (Analytics, error) {
	match := bson.M{"workspace_id": wsID}
	if projectID != nil {
		match["project_id"] = *projectID
	}
	countStage := bson.D{{Key: "$count", Value: "n"}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"total": bson.A{countStage},
			"overdue": bson.A{
				bson.D{{Key: "$match", Value: bson.M{
					"due_date": bson.M{"$lt": now.UTC()},
					"status":   bson.M{"$ne": models.TaskStatusDone},
				}}},
				countStage,
			},
			"completed": bson.A{
				bson.D{{Key: "$match", Value: bson.M{"status": models.TaskStatusDone}}},
				countStage,
			},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Analytics{}, err
	}
	defer cur.Close(ctx)

	type counter struct {
		N int64 `bson:"n"`
	}
	var facet struct {
		Total     []counter `bson:"total"`
		Overdue   []counter `bson:"overdue"`
		Completed []counter `bson:"completed"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&facet); err != nil {
			return Analytics{}, err
		}
	}
	if err := cur.Err(); err != nil {
		return Analytics{}, err
	}

	first := func(c []counter) int64 {
		if len(c) == 0 {
			return 0
		}
		return c[0].N
	}
	return Analytics{
		TotalTasks:     first(facet.Total),
		OverdueTasks:   first(facet.Overdue),
		CompletedTasks: first(facet.Completed),
	}, nil
}
