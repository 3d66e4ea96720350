package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/types"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"provider": "openai",
		"model": "gpt-4o",
		"threshold": 70,
		"max_attempts": 5,
		"mode": "long",
		"kafka_brokers": ["b1:9092", "b2:9092"],
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	require.NotNil(t, cfg.Threshold)
	assert.Equal(t, 70.0, *cfg.Threshold)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, types.ModeLong, cfg.Mode)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "negative threshold", mutate: func(c *Config) { c.Threshold = Float64(-1) }, errMsg: "threshold"},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }, errMsg: "max_attempts"},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "short" }, errMsg: "unknown mode"},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "anthropic" }, errMsg: "unknown provider"},
		{name: "negative keyword limit", mutate: func(c *Config) { c.KeywordLimit = -1 }, errMsg: "keyword limits"},
		{name: "negative timeout", mutate: func(c *Config) { c.CallTimeoutSeconds = -1 }, errMsg: "timeouts"},
		{name: "missing style file", mutate: func(c *Config) { c.StyleFile = "/nonexistent/style.yaml" }, errMsg: "style file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_ZeroThresholdAllowed(t *testing.T) {
	cfg := Defaults()
	cfg.Threshold = Float64(0)
	assert.NoError(t, cfg.Validate())
}

func TestThreshold_ExplicitZeroSurvivesResolve(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"threshold": 0}`), 0644))

	fromFile, err := LoadConfig(path)
	require.NoError(t, err)
	cfg, err := Resolve(fromFile)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.GateThreshold())

	cfg, err = Resolve(&Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, cfg.GateThreshold())

	unset := Config{}
	assert.Equal(t, DefaultThreshold, unset.GateThreshold())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{Threshold: Float64(75), Mode: types.ModeLong, KafkaBrokers: []string{"k:9092"}}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 75.0, merged.GateThreshold())
	assert.Equal(t, types.ModeLong, merged.Mode)
	assert.Equal(t, []string{"k:9092"}, merged.KafkaBrokers)
	assert.Equal(t, DefaultMaxAttempts, merged.MaxAttempts)
	assert.Equal(t, DefaultKeywordLimit, merged.KeywordLimit)
	assert.Equal(t, DefaultNotifyKeywordLimit, merged.NotifyKeywordLimit)
	assert.Equal(t, llm.ProviderGemini, merged.Provider)
	assert.Equal(t, 120*time.Second, merged.CallTimeout())
	assert.Zero(t, merged.Backoff())

	// original untouched
	assert.Zero(t, cfg.MaxAttempts)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.example/webhook")

	cfg := Config{DatabaseURL: "postgres://file"}
	cfg.ApplyEnv()

	assert.Equal(t, "gem-key", cfg.APIKey)
	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "oai-key", cfg.LLMAPIKey())
	assert.Equal(t, "postgres://file", cfg.DatabaseURL, "file value wins over env")
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "https://discord.example/webhook", cfg.DiscordWebhookURL)
}

func TestResolve(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	cfg, err := Resolve(&Config{Threshold: Float64(65)})
	require.NoError(t, err)
	assert.Equal(t, 65.0, cfg.GateThreshold())
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)

	_, err = Resolve(&Config{Mode: "tiny"})
	assert.Error(t, err)
}

func TestLLMConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = llm.ProviderOpenAI
	cfg.Model = "gpt-4.1"
	cfg.OpenAIBaseURL = "https://gateway.example/v1"
	cfg.Temperature = 0.5

	lc := cfg.LLMConfig()
	assert.Equal(t, llm.ProviderOpenAI, lc.Provider)
	assert.Equal(t, "gpt-4.1", lc.GetModel(llm.TierAdvanced))
	assert.Equal(t, "https://gateway.example/v1", lc.BaseURL)
	assert.Equal(t, float32(0.5), lc.Temperature)
	assert.Equal(t, 120*time.Second, lc.Timeout)
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("QR_TEST_INT", "7")
	assert.Equal(t, 7, GetEnvInt("QR_TEST_INT", 1))
	t.Setenv("QR_TEST_INT", "x")
	assert.Equal(t, 1, GetEnvInt("QR_TEST_INT", 1))
	assert.Equal(t, "d", GetEnv("QR_TEST_UNSET", "d"))
}
