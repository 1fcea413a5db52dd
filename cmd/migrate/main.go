// Package main runs database migrations:
//
//	go run ./cmd/migrate up
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Manage the resume builder database schema",
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), db.RunMigrations)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), db.RollbackMigration)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), db.MigrationStatus)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db-url", "", "Database URL (defaults to DATABASE_URL)")
	rootCmd.AddCommand(upCmd, downCmd, statusCmd)
}

func withDB(ctx context.Context, run func(context.Context, *sql.DB) error) error {
	url := databaseURL
	if url == "" {
		url = config.Load().DatabaseURL
	}
	if url == "" {
		return errors.New("DATABASE_URL or --db-url is required")
	}
	sqlDB, err := db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()
	return run(ctx, sqlDB)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
