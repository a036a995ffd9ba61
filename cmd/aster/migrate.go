package main

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/aster/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := newLogger()

		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.UserName,
			cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)

		conn, err := sqlx.Connect(cfg.Database.Driver, dsn)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to database")
			return err
		}
		defer conn.Close()

		driver, err := postgres.WithInstance(conn.DB, &postgres.Config{})
		if err != nil {
			logger.WithError(err).Error("Failed to create migration driver")
			return err
		}

		service := database.NewMigrationService(logger, &database.MigrationConfig{
			MigrationFolderPath: cfg.Database.MigrationFolderPath,
			Version:             cfg.Database.MigrationVersion,
			Force:               cfg.Database.MigrationForce,
			AutoRollback:        cfg.Database.MigrationAutoRollback,
		})

		return service.Migrate(cfg.Database.Name, driver)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
