// Package main provides the quote_agent CLI: one-off draft generation, the
// Kafka worker and the review API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "quote_agent",
	Short: "Quote-repost draft pipeline",
	Long: `quote_agent turns a source post and its author's profile into three quote-repost drafts,
corrects and scores them, and forwards the ones above the threshold to a reviewer.`,
	SilenceUsage: true,
}

func main() {
	config.LoadEnv(logging.NewLogger())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
