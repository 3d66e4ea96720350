package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/correction"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage the trend keywords fed to the pipeline",
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active trend keywords, highest weight first",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()
		database, err := connectDatabase(ctx, keywordsDatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		keywords, err := database.ActiveTrendKeywords(ctx, keywordsLimit)
		if err != nil {
			return err
		}
		for _, kw := range keywords {
			_, _ = fmt.Fprintln(os.Stdout, kw)
		}
		return nil
	},
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add KEYWORD...",
	Short: "Add or reactivate trend keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		database, err := connectDatabase(ctx, keywordsDatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		for _, kw := range args {
			if err := database.UpsertTrendKeyword(ctx, kw, keywordsWeight); err != nil {
				return fmt.Errorf("failed to add %q: %w", kw, err)
			}
		}
		_, _ = fmt.Fprintf(os.Stdout, "Added %d keyword(s)\n", len(args))
		return nil
	},
}

var keywordsRemoveCmd = &cobra.Command{
	Use:   "remove KEYWORD...",
	Short: "Deactivate trend keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		database, err := connectDatabase(ctx, keywordsDatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		for _, kw := range args {
			if err := database.DeactivateTrendKeyword(ctx, kw); err != nil {
				return fmt.Errorf("failed to remove %q: %w", kw, err)
			}
		}
		_, _ = fmt.Fprintf(os.Stdout, "Deactivated %d keyword(s)\n", len(args))
		return nil
	},
}

var stylesImportCmd = &cobra.Command{
	Use:   "import-styles FILE",
	Short: "Store every author style from a YAML style set in the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		set, err := correction.LoadStyleFile(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		database, err := connectDatabase(ctx, keywordsDatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		authors := make([]string, 0, len(set.Authors))
		for author := range set.Authors {
			authors = append(authors, author)
		}
		sort.Strings(authors)
		for _, author := range authors {
			if err := database.SaveStyle(ctx, author, set.For(author)); err != nil {
				return fmt.Errorf("failed to save style for %s: %w", author, err)
			}
		}
		_, _ = fmt.Fprintf(os.Stdout, "Imported %d author style(s)\n", len(authors))
		return nil
	},
}

var (
	keywordsDatabaseURL string
	keywordsWeight      float64
	keywordsLimit       int
)

func init() {
	keywordsCmd.PersistentFlags().StringVar(&keywordsDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	keywordsAddCmd.Flags().Float64Var(&keywordsWeight, "weight", 1, "Relative weight; higher weights are placed first in prompts")
	keywordsListCmd.Flags().IntVar(&keywordsLimit, "limit", 50, "Maximum keywords to list")

	keywordsCmd.AddCommand(keywordsListCmd, keywordsAddCmd, keywordsRemoveCmd)
	rootCmd.AddCommand(keywordsCmd)

	stylesImportCmd.Flags().StringVar(&keywordsDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(stylesImportCmd)
}
