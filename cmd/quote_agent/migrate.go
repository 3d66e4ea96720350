package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	Long:  `Applies the schema to the database at --db-url (or DATABASE_URL). Safe to run repeatedly.`,
	RunE:  runMigrate,
}

var migrateDatabaseURL string

func init() {
	migrateCmd.Flags().StringVar(&migrateDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	database, err := connectDatabase(ctx, migrateDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, "Schema applied")
	return nil
}

// connectDatabase connects to url, falling back to DATABASE_URL
func connectDatabase(ctx context.Context, url string) (*db.DB, error) {
	if url == "" {
		url = config.GetEnv("DATABASE_URL", "")
	}
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	return db.Connect(ctx, url)
}
