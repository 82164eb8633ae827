package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/sqlite"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/config"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `migrate brings the configured database up to the latest schema.
Postgres uses the embedded goose migrations; sqlite applies its schema on open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(os.Stderr, cfg.Log.Level, "text")
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			switch cfg.Storage.Backend {
			case config.StoragePostgres:
				if err := postgres.Migrate(ctx, cfg.Storage.PostgresDSN); err != nil {
					return err
				}
				v, err := postgres.MigrationVersion(ctx, cfg.Storage.PostgresDSN)
				if err != nil {
					return err
				}
				log.Info(ctx, "postgres schema up to date", "version", v)
			case config.StorageSQLite:
				db, err := sqlite.Open(cfg.Storage.SQLitePath)
				if err != nil {
					return err
				}
				defer db.Close()
				log.Info(ctx, "sqlite schema up to date", "path", cfg.Storage.SQLitePath)
			default:
				return fmt.Errorf("storage backend %q has no schema to migrate", cfg.Storage.Backend)
			}
			return nil
		},
	}
}
