package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-live/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  "Applies the schema, including the change-notification triggers used by the postgres feed backend. Safe to run repeatedly.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Database.URL == "" {
		return errors.New("database.url (or DATABASE_URL) is required")
	}
	database, err := db.Connect(cmd.Context(), cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.InitSchema(cmd.Context()); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info("schema applied")
	return nil
}
