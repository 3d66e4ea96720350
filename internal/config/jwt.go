package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultJWTIssuer is the issuer written to and required on review tokens
const DefaultJWTIssuer = "quote-repost"

// JWTConfig holds configuration for reviewer token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
}

// NewJWTConfig creates a JWT configuration from environment variables.
// It reads JWT_SECRET (required), JWT_EXPIRATION_HOURS (default: 24) and
// JWT_ISSUER (default: quote-repost).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	expirationStr := os.Getenv("JWT_EXPIRATION_HOURS")
	if expirationStr == "" {
		expirationStr = "24" // default
	}

	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
		Issuer:          GetEnv("JWT_ISSUER", DefaultJWTIssuer),
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	if c.Issuer == "" {
		c.Issuer = DefaultJWTIssuer
	}
	return nil
}
