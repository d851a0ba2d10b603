// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/taskhub/internal/app/system/metrics"
	"github.com/dalemusser/taskhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. The metrics
// registry and the maintenance worker are built alongside the client so
// Startup, BuildHandler and Shutdown share them.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Metrics *metrics.Metrics
	Worker  *workers.Maintenance
}
