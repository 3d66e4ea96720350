package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("JWT_ISSUER", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-secret-key", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should use default expiration of 24 hours")
	assert.Equal(t, DefaultJWTIssuer, cfg.Issuer)
}

func TestNewJWTConfig_Expiration(t *testing.T) {
	tests := []struct {
		name          string
		expiration    string
		expectedHours int
		wantErr       bool
	}{
		{name: "custom", expiration: "48", expectedHours: 48},
		{name: "one hour", expiration: "1", expectedHours: 1},
		{name: "zero", expiration: "0", wantErr: true},
		{name: "negative", expiration: "-5", wantErr: true},
		{name: "not a number", expiration: "abc", wantErr: true},
		{name: "float", expiration: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret-key")
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedHours, cfg.ExpirationHours)
		})
	}
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := NewJWTConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestNewJWTConfig_CustomIssuer(t *testing.T) {
	t.Setenv("JWT_SECRET", "my-secret-key-123")
	t.Setenv("JWT_ISSUER", "review-gateway")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "review-gateway", cfg.Issuer)
}
