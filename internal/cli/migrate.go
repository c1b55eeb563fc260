package cli

import (
	"context"
	"fmt"

	"animal-quiz-service/internal/catalog"
	"animal-quiz-service/internal/config"
	"animal-quiz-service/internal/infra/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runMigrationsWithConfig(cmd.Context(), cfg, logger)
		},
	}
}

// NewSeedCatalogCmd upserts the YAML catalog into Postgres.
func NewSeedCatalogCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Load the YAML catalog into the catalog_levels table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Catalog.File
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return seedCatalog(cmd.Context(), cfg, file, logger)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog YAML (defaults to catalog.file, then the embedded catalog)")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	group, err := postgres.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Info("migrations applied", zap.String("group", group.String()))
	return nil
}

func seedCatalog(ctx context.Context, cfg config.Config, file string, logger *zap.Logger) error {
	if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
		return err
	}
	levels, err := catalog.NewFileLoader(file).LoadLevels(ctx)
	if err != nil {
		return err
	}
	// Validate before writing so a broken file never replaces a good catalog.
	if _, err := catalog.New(levels, cfg.Catalog.DefaultLocale, cfg.Catalog.Locales); err != nil {
		return err
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()
	n, err := postgres.SeedCatalog(ctx, db, levels)
	if err != nil {
		return err
	}
	logger.Info("catalog seeded", zap.Int("levels", n))
	return nil
}
