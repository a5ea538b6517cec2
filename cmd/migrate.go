/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/skillbridge/apiserver/config"
	"github.com/skillbridge/apiserver/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrateDownSteps int
	migrateDownAll   bool
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		migrator, err := newMigrator(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if err := migrator.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("migrations already up to date")
				return nil
			}
			return fmt.Errorf("migrate up failed: %w", err)
		}
		logVersion(log, migrator)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		migrator, err := newMigrator(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if migrateDownAll {
			err = migrator.Down()
		} else {
			err = migrator.Steps(-migrateDownSteps)
		}
		if err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("nothing to roll back")
				return nil
			}
			return fmt.Errorf("migrate down failed: %w", err)
		}
		logVersion(log, migrator)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")
	migrateDownCmd.Flags().BoolVar(&migrateDownAll, "all", false, "roll back every migration")
}

func newMigrator(cfg config.Config) (*migrate.Migrate, error) {
	dsn, err := db.MigrationURL(cfg)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}

func logVersion(log *zap.Logger, migrator *migrate.Migrate) {
	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("no migrations applied")
			return
		}
		log.Warn("failed to read migration version", zap.Error(err))
		return
	}
	log.Info("migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
