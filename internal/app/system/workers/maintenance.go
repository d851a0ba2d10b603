// Package workers runs the scheduled background jobs.
package workers

import (
	"context"
	"time"

	metricsstore "github.com/dalemusser/taskhub/internal/app/store/metrics"
	"github.com/dalemusser/taskhub/internal/app/store/oauthstate"
	"github.com/dalemusser/taskhub/internal/app/system/metrics"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 30 * time.Second

// Maintenance removes expired OAuth state tokens and refreshes the
// collection gauges on cron schedules.
type Maintenance struct {
	db      *mongo.Database
	states  *oauthstate.Store
	metrics *metrics.Metrics
	log     *zap.Logger

	cleanupSpec string
	statsSpec   string
	cron        *cron.Cron
}

// NewMaintenance creates the worker. Specs use the cron/v3 syntax,
// including descriptors such as "@every 15m". An empty spec disables
// that job.
func NewMaintenance(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger, cleanupSpec, statsSpec string) *Maintenance {
	return &Maintenance{
		db:          db,
		states:      oauthstate.New(db),
		metrics:     m,
		log:         logger,
		cleanupSpec: cleanupSpec,
		statsSpec:   statsSpec,
		cron:        cron.New(),
	}
}

// Start schedules the jobs and starts the scheduler.
func (w *Maintenance) Start() error {
	if w.cleanupSpec != "" {
		if _, err := w.cron.AddFunc(w.cleanupSpec, w.runCleanup); err != nil {
			return err
		}
	}
	if w.statsSpec != "" {
		if _, err := w.cron.AddFunc(w.statsSpec, w.runStats); err != nil {
			return err
		}
	}
	w.cron.Start()
	w.log.Info("maintenance worker started",
		zap.String("oauth_state_cleanup", w.cleanupSpec),
		zap.String("stats_refresh", w.statsSpec))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (w *Maintenance) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info("maintenance worker stopped")
}

// CleanupStates deletes expired OAuth state tokens and returns how many
// were removed.
func (w *Maintenance) CleanupStates(ctx context.Context) (int64, error) {
	n, err := w.states.CleanupExpired(ctx)
	if err != nil {
		return 0, err
	}
	w.metrics.CleanupDeleted(n)
	return n, nil
}

// RefreshStats updates the document and task-status gauges.
func (w *Maintenance) RefreshStats(ctx context.Context) error {
	c := metricsstore.FetchCounts(ctx, w.db)
	w.metrics.SetDocuments(map[string]int64{
		"users":      c.Users,
		"workspaces": c.Workspaces,
		"projects":   c.Projects,
		"tasks":      c.Tasks,
	})

	byStatus, err := metricsstore.CountTasksByStatus(ctx, w.db)
	if err != nil {
		return err
	}
	w.metrics.SetTasksByStatus(models.TaskStatuses, byStatus)
	return nil
}

func (w *Maintenance) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := w.CleanupStates(ctx)
	if err != nil {
		w.log.Error("failed to remove expired oauth states", zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("removed expired oauth states", zap.Int64("count", n))
	}
}

func (w *Maintenance) runStats() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := w.RefreshStats(ctx); err != nil {
		w.log.Warn("stats refresh incomplete", zap.Error(err))
	}
}
