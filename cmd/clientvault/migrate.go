package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kjayal/clientvault/config"
	"github.com/kjayal/clientvault/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the metadata schema",
	Long: `Create the metadata tables if they do not exist and validate that
the existing schema matches what the server expects.

With --reset, the tables are dropped and recreated empty. All stored
client records are lost; the objects in the store are untouched.`,
	RunE: runMigrate,
}

var migrateReset bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateReset, "reset", false, "drop and recreate the metadata tables")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	if migrateReset {
		slog.Warn("resetting metadata tables", "type", cfg.Database.Type)
		if err := database.Reset(ctx, cfg.Database); err != nil {
			return fmt.Errorf("reset database: %w", err)
		}
		slog.Info("metadata tables recreated")
		return nil
	}

	// Connect runs migrations and validates the schema.
	_, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	closeDB()

	slog.Info("database migration complete", "type", cfg.Database.Type)
	return nil
}
