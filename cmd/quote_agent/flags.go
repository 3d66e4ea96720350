package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/types"
)

// pipelineFlags are the flags shared by every command that builds a pipeline.
// A flag only overrides the config file when it was set explicitly.
type pipelineFlags struct {
	configPath   string
	provider     string
	model        string
	apiKey       string
	threshold    float64
	maxAttempts  int
	mode         string
	styleFile    string
	databaseURL  string
	webhookURL   string
	kafkaBrokers []string
	rubric       bool
	verbose      bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.StringVar(&f.provider, "provider", "", "LLM provider: gemini or openai (defaults to LLM_PROVIDER env var)")
	flags.StringVar(&f.model, "model", "", "Model used for drafting (defaults to the provider's advanced model)")
	flags.StringVar(&f.apiKey, "api-key", "", "API key for the provider (defaults to GEMINI_API_KEY or OPENAI_API_KEY)")
	flags.Float64Var(&f.threshold, "threshold", 0, "Minimum total score a draft needs to be forwarded")
	flags.IntVar(&f.maxAttempts, "max-attempts", 0, "Generation attempts before giving up")
	flags.StringVar(&f.mode, "mode", "", "Length mode for invocations that do not set one: normal or long")
	flags.StringVar(&f.styleFile, "style-file", "", "YAML style set (ignored when a database is configured)")
	flags.StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	flags.StringVar(&f.webhookURL, "webhook-url", "", "Discord webhook URL (defaults to DISCORD_WEBHOOK_URL env var)")
	flags.StringSliceVar(&f.kafkaBrokers, "kafka-brokers", nil, "Kafka seed brokers (defaults to KAFKA_BROKERS env var)")
	flags.BoolVar(&f.rubric, "rubric", false, "Score drafts with a second LLM call instead of their self-assessment")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Print progress and draft details")
}

// resolve loads the config file, applies explicitly set flags, then fills the
// rest from the environment and the defaults.
func (f *pipelineFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = llm.Provider(strings.ToLower(f.provider))
	}
	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("api-key") {
		// the provider may still come from the environment
		cfg.APIKey = f.apiKey
		cfg.OpenAIAPIKey = f.apiKey
	}
	if flags.Changed("threshold") {
		cfg.Threshold = config.Float64(f.threshold)
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = f.maxAttempts
	}
	if flags.Changed("mode") {
		cfg.Mode = types.Mode(f.mode)
	}
	if flags.Changed("style-file") {
		cfg.StyleFile = f.styleFile
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if flags.Changed("webhook-url") {
		cfg.DiscordWebhookURL = f.webhookURL
	}
	if flags.Changed("kafka-brokers") {
		cfg.KafkaBrokers = f.kafkaBrokers
	}
	if flags.Changed("rubric") {
		cfg.RubricScoring = f.rubric
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	resolved, err := config.Resolve(&cfg)
	if err != nil {
		return config.Config{}, err
	}
	if resolved.Verbose && f.configPath != "" {
		_, _ = fmt.Fprintf(os.Stderr, "Loaded config from: %s\n", f.configPath)
	}
	return resolved, nil
}

// requireLLMKey fails when the configured provider has no API key
func requireLLMKey(cfg config.Config) error {
	if cfg.LLMAPIKey() != "" {
		return nil
	}
	if cfg.Provider == llm.ProviderOpenAI {
		return fmt.Errorf("OPENAI_API_KEY environment variable or --api-key flag is required")
	}
	return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
}
