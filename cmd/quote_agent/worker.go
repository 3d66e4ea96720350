package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume invocations from Kafka and run them",
	Long: `Consumes invocations from the quote_repost.invocations topic and runs each through the
pipeline. Invocations that can never succeed are written to the dead letter topic; a failed
notification is retried by redelivery.

Requires KAFKA_BROKERS. DATABASE_URL is optional: without it nothing is recorded and the
trend keywords and styles fall back to --style-file and the defaults.`,
	RunE: runWorker,
}

var (
	workerFlags       pipelineFlags
	workerGroup       string
	workerMetricsAddr string
)

func init() {
	workerFlags.register(workerCmd)

	workerCmd.Flags().StringVar(&workerGroup, "group", "", "Kafka consumer group (default from config)")
	workerCmd.Flags().StringVar(&workerMetricsAddr, "metrics-addr", ":9090", "Address serving /metrics (empty disables)")

	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := workerFlags.resolve(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("group") {
		cfg.KafkaGroup = workerGroup
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLoggerWithService("quote-repost-worker")
	s, err := newStack(ctx, cfg, logger, stackOptions{requireQueue: true})
	defer s.Close()
	if err != nil {
		return err
	}

	hostname, _ := os.Hostname()
	consumer, err := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, "quote-repost-worker-"+hostname, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()
	consumer.AddHandler(queue.TopicInvocations, queue.InvocationHandler(s.runner, s.producer, logger))

	if workerMetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              workerMetricsAddr,
			Handler:           promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.WithFields(logging.Fields{
		"brokers": cfg.KafkaBrokers,
		"group":   cfg.KafkaGroup,
		"topic":   queue.TopicInvocations,
	}).Info("Worker started")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Worker stopped")
	return nil
}
