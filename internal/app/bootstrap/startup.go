// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	rolestore "github.com/dalemusser/taskhub/internal/app/store/roles"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: it
// applies the timeout overrides, seeds the role table and starts the
// background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	if appCfg.SeedRoles {
		if err := seedRoles(ctx, deps, logger); err != nil {
			return err
		}
	}

	return deps.Worker.Start()
}

// roleTable returns the compiled-in permission table in the form the role
// store persists.
func roleTable() map[string][]string {
	out := make(map[string][]string)
	for _, name := range authz.Roles() {
		out[name] = authz.PermissionsFor(name).Strings()
	}
	return out
}

// seedRoles upserts every role in one transaction so a partial table is
// never visible.
func seedRoles(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	roles := rolestore.New(deps.MongoDatabase)
	table := roleTable()

	err := txn.New(deps.MongoClient, logger).Run(ctx, func(sc mongo.SessionContext) error {
		_, err := roles.Seed(sc, table)
		return err
	})
	if txn.IsNotSupported(err) {
		logger.Warn("transactions unavailable; seeding roles without one")
		_, err = roles.Seed(ctx, table)
	}
	if err != nil {
		logger.Error("role seed failed", zap.Error(err))
		return err
	}
	logger.Info("roles seeded", zap.Int("count", len(table)))
	return nil
}
