package migrate

import (
	"context"
	"fmt"

	"github.com/neighbridge/neighbridge-backend/pkg/config"
	"github.com/neighbridge/neighbridge-backend/pkg/db"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations in dev when auto-migrate is on. In
// every environment it then confirms the schema supports the configured
// proximity strategy.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	autoRun := cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
	if !autoRun && !cfg.Geo.UsePostGIS() {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"dir":       DefaultDir,
		"proximity": cfg.Geo.ProximityStrategy,
	})

	if autoRun {
		logg.Info(ctx, "running goose migrations (dev auto-run)")
		if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
			return fmt.Errorf("running goose up: %w", err)
		}
		logg.Info(ctx, "goose migrations completed")
	}

	if cfg.Geo.UsePostGIS() {
		if err := RequirePostGIS(ctx, sqlDB); err != nil {
			return err
		}
	}
	return nil
}
