package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API server",
	Long: `Start an HTTP server that accepts invocations and the reviewer's approve, revise and
skip actions. Requires DATABASE_URL and JWT_SECRET. With KAFKA_BROKERS set, submitted
invocations and revisions are queued for the worker; otherwise they run in the server.`,
	RunE: runServe,
}

var (
	serveFlags pipelineFlags
	serveAddr  string
)

func init() {
	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (defaults to LISTEN_ADDR env var, then :8080)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := serveFlags.resolve(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr = serveAddr
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLoggerWithService("quote-repost-api")
	s, err := newStack(ctx, cfg, logger, stackOptions{requireDatabase: true})
	defer s.Close()
	if err != nil {
		return err
	}

	deps := server.Dependencies{
		Runner: s.runner,
		Store:  s.database,
		HealthChecks: map[string]server.HealthCheck{
			"database": s.database.Ping,
		},
	}
	if s.producer != nil {
		deps.Requeuer = s.producer
		deps.HealthChecks["kafka"] = s.producer.HealthCheck
	}

	srv, err := server.New(server.Config{
		ListenAddr: cfg.ListenAddr,
		JWT:        jwtConfig,
		Logger:     logger,
		Registerer: s.registry,
		Gatherer:   s.registry,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
