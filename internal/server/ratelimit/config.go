package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/quote-repost/internal/config"
)

// DefaultLimit is the per-minute limit for endpoints without their own entry
const DefaultLimit = 1000

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    config.GetEnvInt("RATE_LIMIT_DEFAULT_LIMIT", DefaultLimit),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(config.GetEnv("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(config.GetEnv("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Each invocation costs up to MaxAttempts LLM calls
		{Path: "/invocations", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/invocations/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// Reviews are cheap but a revise re-enqueues an invocation
		{Path: "/reviews", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},

		// Reads fall through to the default limit; /health and /metrics are unlimited
	}
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
