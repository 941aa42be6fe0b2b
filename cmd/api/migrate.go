package main

import (
	"fmt"

	"career-coach-backend/config"
	"career-coach-backend/pkg/database"
	"career-coach-backend/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.IsProduction())

		dbPool, err := database.NewPostgresConnection(cmd.Context(), cfg.DBUrl)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer dbPool.Close()

		applied, err := database.Migrate(cmd.Context(), dbPool)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			logger.Log.Info("Database is up to date")
			return nil
		}
		logger.Log.Info("Migrations applied", "versions", applied)
		return nil
	},
}
