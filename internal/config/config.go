// Package config provides configuration loading and validation for the CLI and worker.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/types"
)

// Defaults
const (
	DefaultThreshold          = 60.0
	DefaultMaxAttempts        = 3
	DefaultCallTimeoutSeconds = 120
	DefaultKeywordLimit       = 20
	DefaultNotifyKeywordLimit = 10
	DefaultConcurrency        = 4
	DefaultCacheTTLSeconds    = 300
	DefaultListenAddr         = ":8080"
	DefaultKafkaGroup         = "quote-repost-worker"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from flags, the environment
// or the defaults, in that order.
type Config struct {
	// LLM
	Provider      llm.Provider `json:"provider,omitempty"`        // gemini or openai
	Model         string       `json:"model,omitempty"`           // Overrides the drafting model
	APIKey        string       `json:"api_key,omitempty"`         // Gemini API key
	OpenAIAPIKey  string       `json:"openai_api_key,omitempty"`  // OpenAI API key
	OpenAIBaseURL string       `json:"openai_base_url,omitempty"` // OpenAI-compatible endpoint
	Temperature   float32      `json:"temperature,omitempty"`

	// Generation and gating
	Threshold          *float64   `json:"threshold,omitempty"` // nil selects DefaultThreshold; 0 accepts every draft
	MaxAttempts        int        `json:"max_attempts,omitempty"`
	CallTimeoutSeconds int        `json:"call_timeout_seconds,omitempty"`
	BackoffMillis      int        `json:"backoff_millis,omitempty"`
	KeywordLimit       int        `json:"keyword_limit,omitempty"`        // Trend keywords placed in the prompt
	NotifyKeywordLimit int        `json:"notify_keyword_limit,omitempty"` // Trend keywords listed in the notification
	Mode               types.Mode `json:"mode,omitempty"`
	RubricScoring      bool       `json:"rubric_scoring,omitempty"` // Score with an LLM rubric instead of the self-assessment

	// Collaborators
	StyleFile         string   `json:"style_file,omitempty"` // YAML style set
	DatabaseURL       string   `json:"database_url,omitempty"`
	KafkaBrokers      []string `json:"kafka_brokers,omitempty"`
	KafkaGroup        string   `json:"kafka_group,omitempty"`
	DiscordWebhookURL string   `json:"discord_webhook_url,omitempty"`
	CacheTTLSeconds   int      `json:"cache_ttl_seconds,omitempty"`

	// Runtime
	Concurrency int    `json:"concurrency,omitempty"`
	ListenAddr  string `json:"listen_addr,omitempty"`
	Verbose     bool   `json:"verbose,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Provider:           llm.ProviderGemini,
		Threshold:          Float64(DefaultThreshold),
		MaxAttempts:        DefaultMaxAttempts,
		CallTimeoutSeconds: DefaultCallTimeoutSeconds,
		KeywordLimit:       DefaultKeywordLimit,
		NotifyKeywordLimit: DefaultNotifyKeywordLimit,
		Mode:               types.ModeNormal,
		KafkaGroup:         DefaultKafkaGroup,
		CacheTTLSeconds:    DefaultCacheTTLSeconds,
		Concurrency:        DefaultConcurrency,
		ListenAddr:         DefaultListenAddr,
	}
}

// Validate checks that the configuration has valid values.
// Missing credentials are not checked here since which ones are needed
// depends on the command.
func (c *Config) Validate() error {
	if c.Threshold != nil && *c.Threshold < 0 {
		return fmt.Errorf("config error: 'threshold' must be non-negative")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("config error: 'max_attempts' must be at least 1")
	}
	if c.CallTimeoutSeconds < 0 || c.BackoffMillis < 0 {
		return fmt.Errorf("config error: timeouts must be non-negative")
	}
	if c.KeywordLimit < 0 || c.NotifyKeywordLimit < 0 {
		return fmt.Errorf("config error: keyword limits must be non-negative")
	}
	if c.Mode != "" && !c.Mode.Valid() {
		return fmt.Errorf("config error: unknown mode %q (want normal or long)", c.Mode)
	}
	switch c.Provider {
	case "", llm.ProviderGemini, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("config error: unknown provider %q", c.Provider)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}

	if c.StyleFile != "" {
		if _, err := os.Stat(c.StyleFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: style file not found: %s", c.StyleFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Bools cannot be told apart from unset and are left as they are.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	mergeString(&result.Model, defaults.Model)
	mergeString(&result.APIKey, defaults.APIKey)
	mergeString(&result.OpenAIAPIKey, defaults.OpenAIAPIKey)
	mergeString(&result.OpenAIBaseURL, defaults.OpenAIBaseURL)
	mergeString(&result.StyleFile, defaults.StyleFile)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.KafkaGroup, defaults.KafkaGroup)
	mergeString(&result.DiscordWebhookURL, defaults.DiscordWebhookURL)
	mergeString(&result.ListenAddr, defaults.ListenAddr)
	if result.Mode == "" {
		result.Mode = defaults.Mode
	}
	if len(result.KafkaBrokers) == 0 {
		result.KafkaBrokers = append([]string(nil), defaults.KafkaBrokers...)
	}

	mergeInt(&result.MaxAttempts, defaults.MaxAttempts)
	mergeInt(&result.CallTimeoutSeconds, defaults.CallTimeoutSeconds)
	mergeInt(&result.BackoffMillis, defaults.BackoffMillis)
	mergeInt(&result.KeywordLimit, defaults.KeywordLimit)
	mergeInt(&result.NotifyKeywordLimit, defaults.NotifyKeywordLimit)
	mergeInt(&result.CacheTTLSeconds, defaults.CacheTTLSeconds)
	mergeInt(&result.Concurrency, defaults.Concurrency)

	if result.Threshold == nil && defaults.Threshold != nil {
		result.Threshold = Float64(*defaults.Threshold)
	}
	if result.Temperature == 0 {
		result.Temperature = defaults.Temperature
	}

	return result
}

// ApplyEnv fills fields that are still empty from the environment
func (c *Config) ApplyEnv() {
	mergeString(&c.APIKey, GetEnv("GEMINI_API_KEY", ""))
	mergeString(&c.OpenAIAPIKey, GetEnv("OPENAI_API_KEY", ""))
	mergeString(&c.OpenAIBaseURL, GetEnv("OPENAI_BASE_URL", ""))
	if c.Provider == "" {
		c.Provider = llm.Provider(strings.ToLower(GetEnv("LLM_PROVIDER", "")))
	}
	mergeString(&c.Model, GetEnv("LLM_MODEL", ""))
	mergeString(&c.DatabaseURL, GetEnv("DATABASE_URL", ""))
	mergeString(&c.DiscordWebhookURL, GetEnv("DISCORD_WEBHOOK_URL", ""))
	mergeString(&c.StyleFile, GetEnv("STYLE_FILE", ""))
	mergeString(&c.ListenAddr, GetEnv("LISTEN_ADDR", ""))
	if len(c.KafkaBrokers) == 0 {
		c.KafkaBrokers = splitList(GetEnv("KAFKA_BROKERS", ""))
	}
	mergeInt(&c.Concurrency, GetEnvInt("CONCURRENCY", 0))
}

// Resolve merges file config, env and defaults in precedence order and validates
func Resolve(fromFile *Config) (Config, error) {
	var cfg Config
	if fromFile != nil {
		cfg = *fromFile
	}
	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(Defaults())
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GateThreshold is the minimum total score a draft needs to be surfaced
func (c *Config) GateThreshold() float64 {
	if c.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Threshold
}

// Float64 returns a pointer to v, for optional fields such as Threshold
func Float64(v float64) *float64 {
	return &v
}

// CallTimeout is the per-attempt generation timeout
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// Backoff is the pause between generation attempts
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.BackoffMillis) * time.Millisecond
}

// CacheTTL is how long trend keywords and styles are reused
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// LLMAPIKey returns the key for the configured provider
func (c *Config) LLMAPIKey() string {
	if c.Provider == llm.ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.APIKey
}

// LLMConfig builds the client config for the configured provider
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.ConfigForProvider(c.Provider)
	if c.Model != "" {
		cfg = cfg.WithModel(llm.TierAdvanced, c.Model)
	}
	if c.OpenAIBaseURL != "" && c.Provider == llm.ProviderOpenAI {
		cfg.BaseURL = c.OpenAIBaseURL
	}
	if c.Temperature != 0 {
		cfg.Temperature = c.Temperature
	}
	cfg.Timeout = c.CallTimeout()
	return cfg
}

func mergeString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

func mergeInt(dst *int, fallback int) {
	if *dst == 0 {
		*dst = fallback
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
