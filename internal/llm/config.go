// Package llm provides centralized LLM configuration and client abstractions.
// Drafting can run against Gemini or any OpenAI-compatible chat completions endpoint.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks such as rubric re-scoring
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning and structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for creative drafting
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI provider, also used for compatible gateways
	ProviderOpenAI Provider = "openai"
)

// DefaultMaxOutputTokens bounds the response size of a single drafting call
const DefaultMaxOutputTokens = 4096

// DefaultTemperature favors varied drafts over deterministic output
const DefaultTemperature = 0.8

// Config holds the model configuration for the application
type Config struct {
	Provider        Provider
	Models          map[ModelTier]string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int
	// Timeout bounds one call; zero leaves it to the caller's context
	Timeout time.Duration
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Timeout:         120 * time.Second,
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o",
			TierAdvanced: "gpt-4o",
		},
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Timeout:         120 * time.Second,
	}
}

// ConfigForProvider returns the default configuration for a provider name.
// Unknown names fall back to Gemini.
func ConfigForProvider(p Provider) *Config {
	if p == ProviderOpenAI {
		return DefaultOpenAIConfig()
	}
	return DefaultGeminiConfig()
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
