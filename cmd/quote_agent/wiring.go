package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathan/quote-repost/internal/cache"
	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/correction"
	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/generation"
	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/notify"
	"github.com/jonathan/quote-repost/internal/observability"
	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/queue"
	"github.com/jonathan/quote-repost/internal/scoring"
)

const maxCachedAuthors = 256

// stackOptions selects the optional collaborators a command needs
type stackOptions struct {
	requireDatabase bool
	requireQueue    bool
	// notifier replaces the configured Discord/log notifier
	notifier pipeline.Notifier
	// keywords are used when no database is configured
	keywords []string
}

// stack is every long-lived collaborator a command wires together
type stack struct {
	cfg      config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	client   llm.Client
	database *db.DB
	producer *queue.Producer
	runner   *pipeline.Runner
}

// newStack connects to the configured services and builds the runner.
// Close must be called even when an error is returned.
func newStack(ctx context.Context, cfg config.Config, logger logging.Logger, opts stackOptions) (*stack, error) {
	s := &stack{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	if err := requireLLMKey(cfg); err != nil {
		return s, err
	}
	client, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.LLMAPIKey())
	if err != nil {
		return s, fmt.Errorf("failed to create LLM client: %w", err)
	}
	s.client = client

	if cfg.DatabaseURL == "" && opts.requireDatabase {
		return s, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return s, err
		}
		s.database = database
	}

	if len(cfg.KafkaBrokers) == 0 && opts.requireQueue {
		return s, fmt.Errorf("KAFKA_BROKERS environment variable or --kafka-brokers flag is required")
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := queue.NewProducer(cfg.KafkaBrokers, "quote-repost-producer")
		if err != nil {
			return s, fmt.Errorf("failed to create producer: %w", err)
		}
		s.producer = producer
	}

	notifier := opts.notifier
	if notifier == nil {
		notifier, err = s.notifier()
		if err != nil {
			return s, err
		}
	}

	deps := pipeline.Dependencies{
		Generator: s.generator(),
		Notifier:  notifier,
	}
	if cfg.RubricScoring {
		deps.Rubric = &scoring.LLMRubric{Client: client, Tier: llm.TierLite}
	}

	lookups := cache.NewLookupCounter(s.registry)
	if s.database != nil {
		deps.Keywords = cache.NewKeywords(s.database, cfg.CacheTTL(), cache.PrometheusHooks(lookups, "trend_keywords"))
		deps.Styles = cache.NewStyles(s.database, cfg.CacheTTL(), maxCachedAuthors, cache.PrometheusHooks(lookups, "styles"))
		deps.Recorder = s.database
	} else {
		if len(opts.keywords) > 0 {
			deps.Keywords = staticKeywords(opts.keywords)
		}
		if cfg.StyleFile != "" {
			set, err := correction.LoadStyleFile(cfg.StyleFile)
			if err != nil {
				return s, err
			}
			deps.Styles = set
		}
	}

	runnerOpts := pipeline.Options{
		Threshold:          cfg.Threshold,
		NotifyKeywordLimit: cfg.NotifyKeywordLimit,
		Logger:             logger,
		Metrics:            pipeline.NewMetrics(s.registry),
	}
	if cfg.Verbose {
		runnerOpts.OnProgress = observability.NewPrinter(os.Stdout).PrintProgress
	}

	runner, err := pipeline.NewRunner(deps, runnerOpts)
	if err != nil {
		return s, err
	}
	s.runner = runner
	return s, nil
}

func (s *stack) generator() *generation.Generator {
	opts := generation.Options{
		Tier:         llm.TierAdvanced,
		MaxAttempts:  s.cfg.MaxAttempts,
		Backoff:      s.cfg.Backoff(),
		CallTimeout:  s.cfg.CallTimeout(),
		KeywordLimit: s.cfg.KeywordLimit,
		Logger:       s.logger,
	}
	if s.cfg.Verbose {
		opts.OnAttempt = func(attempt int, err error) {
			if err != nil {
				_, _ = fmt.Fprintf(os.Stdout, "  attempt %d failed: %v\n", attempt, err)
			}
		}
	}
	return generation.New(s.client, opts)
}

// notifier posts to Discord when a webhook is configured and logs otherwise
func (s *stack) notifier() (pipeline.Notifier, error) {
	if s.cfg.DiscordWebhookURL == "" {
		s.logger.Warn("No Discord webhook configured, notifications are only logged")
		return notify.LogNotifier{Logger: s.logger}, nil
	}
	discord, err := notify.NewDiscordNotifier(notify.DefaultDiscordConfig(s.cfg.DiscordWebhookURL), s.logger)
	if err != nil {
		return nil, err
	}
	return discord, nil
}

// Close releases every connection the stack opened
func (s *stack) Close() {
	if s.producer != nil {
		s.producer.Close()
	}
	if s.database != nil {
		s.database.Close()
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close LLM client")
		}
	}
}

// staticKeywords serves a fixed keyword list given on the command line
type staticKeywords []string

func (k staticKeywords) TrendKeywords(context.Context) ([]string, error) {
	return append([]string(nil), k...), nil
}

// parseKeywords splits a comma separated keyword list, dropping blanks
func parseKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// newCommandLogger builds the logger for a command, quieter unless verbose
func newCommandLogger(cfg config.Config, service string) logging.Logger {
	logger := logging.NewLoggerWithService(service)
	if !cfg.Verbose && os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(logging.WarnLevel)
	}
	return logger
}
