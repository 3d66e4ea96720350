package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/types"
)

// clearEnv blanks every variable config.ApplyEnv reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "LLM_PROVIDER", "LLM_MODEL",
		"DATABASE_URL", "DISCORD_WEBHOOK_URL", "STYLE_FILE", "LISTEN_ADDR", "KAFKA_BROKERS", "CONCURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, *pipelineFlags) {
	t.Helper()
	var flags pipelineFlags
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, &flags
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve_Defaults(t *testing.T) {
	clearEnv(t)
	cmd, flags := newFlagCommand(t)

	cfg, err := flags.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultThreshold, cfg.GateThreshold())
	assert.Equal(t, config.DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, llm.ProviderGemini, cfg.Provider)
	assert.Equal(t, types.ModeNormal, cfg.Mode)
	assert.False(t, cfg.RubricScoring)
}

func TestResolve_FlagsOverrideConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `{"threshold": 70, "max_attempts": 2, "mode": "long", "database_url": "postgres://file"}`)
	cmd, flags := newFlagCommand(t,
		"--config", path,
		"--threshold", "55",
		"--kafka-brokers", "k1:9092,k2:9092",
		"--rubric",
	)

	cfg, err := flags.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, 55.0, cfg.GateThreshold(), "explicit flag wins")
	assert.Equal(t, 2, cfg.MaxAttempts, "file value kept when flag not set")
	assert.Equal(t, types.ModeLong, cfg.Mode)
	assert.Equal(t, "postgres://file", cfg.DatabaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RubricScoring)
}

func TestResolve_UnsetFlagsDoNotClobberFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `{"threshold": 70}`)
	cmd, flags := newFlagCommand(t, "--config", path)

	cfg, err := flags.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, 70.0, cfg.GateThreshold())
}

func TestResolve_ZeroThresholdFlag(t *testing.T) {
	clearEnv(t)
	cmd, flags := newFlagCommand(t, "--threshold=0")

	cfg, err := flags.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.GateThreshold())
}

func TestResolve_EnvFillsGaps(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("LLM_PROVIDER", "openai")
	cmd, flags := newFlagCommand(t, "--db-url", "postgres://flag")

	cfg, err := flags.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", cfg.DatabaseURL)
	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
}

func TestResolve_APIKeyServesEitherProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "openai")
	cmd, flags := newFlagCommand(t, "--api-key", "sk-test")

	cfg, err := flags.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey())
	assert.NoError(t, requireLLMKey(cfg))
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		errPart string
	}{
		{name: "unknown mode", args: []string{"--mode", "short"}, errPart: "unknown mode"},
		{name: "negative threshold", args: []string{"--threshold=-1"}, errPart: "threshold"},
		{name: "negative attempts", args: []string{"--max-attempts=-2"}, errPart: "max_attempts"},
		{name: "unknown provider", args: []string{"--provider", "mistral"}, errPart: "unknown provider"},
		{name: "missing config file", args: []string{"--config", "/nonexistent/config.json"}, errPart: "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cmd, flags := newFlagCommand(t, tt.args...)
			_, err := flags.resolve(cmd)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestRequireLLMKey(t *testing.T) {
	err := requireLLMKey(config.Config{Provider: llm.ProviderGemini})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	err = requireLLMKey(config.Config{Provider: llm.ProviderOpenAI})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	assert.NoError(t, requireLLMKey(config.Config{Provider: llm.ProviderGemini, APIKey: "key"}))
}
