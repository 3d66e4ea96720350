package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token REVIEWER",
	Short: "Issue a bearer token for the review API",
	Long:  `Signs a token for REVIEWER with JWT_SECRET. The token expires after JWT_EXPIRATION_HOURS.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		jwtConfig, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		token, err := server.NewJWTService(jwtConfig).GenerateToken(args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(os.Stdout, token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
