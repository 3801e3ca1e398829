package main

import (
	"github.com/spf13/cobra"

	"github.com/xelth-com/ecklinen/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	log.Infow("schema synchronized", "driver", cfg.Database.Driver)
	return nil
}
