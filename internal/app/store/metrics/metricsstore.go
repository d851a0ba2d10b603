package metricsstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of collection totals exported as gauges.
type Counts struct {
	Users      int64
	Workspaces int64
	Projects   int64
	Tasks      int64
}

// FetchCounts returns the document totals of the main collections.
// Tolerant: a failed count is reported as 0 and the rest still run.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	count := func(coll string, dst *int64) {
		if n, err := db.Collection(coll).EstimatedDocumentCount(ctx); err == nil {
			*dst = n
		}
	}
	count("users", &out.Users)
	count("workspaces", &out.Workspaces)
	count("projects", &out.Projects)
	count("tasks", &out.Tasks)
	return out
}

// CountTasksByStatus returns the number of tasks per status across all
// workspaces. Statuses with no tasks are absent.
func CountTasksByStatus(ctx context.Context, db *mongo.Database) (map[string]int64, error) {
	cur, err := db.Collection("tasks").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}
