package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/quote-repost/internal/config"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(_ *testing.T, expirationHours int) *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:          testSecret,
		ExpirationHours: expirationHours,
		Issuer:          config.DefaultJWTIssuer,
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := setupTestJWTService(t, 24)

	token, err := service.GenerateToken("oda")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "oda", claims.GetReviewer())
	assert.Equal(t, config.DefaultJWTIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTService_GenerateToken_UniqueTokens(t *testing.T) {
	service := setupTestJWTService(t, 24)

	token1, err := service.GenerateToken("oda")
	require.NoError(t, err)
	token2, err := service.GenerateToken("oda")
	require.NoError(t, err)
	assert.NotEqual(t, token1, token2, "token IDs differ")
}

func TestJWTService_GenerateToken_RequiresReviewer(t *testing.T) {
	_, err := setupTestJWTService(t, 24).GenerateToken("")
	assert.Error(t, err)
}

func TestJWTService_ValidateToken_Rejects(t *testing.T) {
	service := setupTestJWTService(t, 24)
	valid, err := service.GenerateToken("oda")
	require.NoError(t, err)

	otherSecret := NewJWTService(&config.JWTConfig{Secret: "another-secret-entirely", ExpirationHours: 24, Issuer: config.DefaultJWTIssuer})
	wrongSig, err := otherSecret.GenerateToken("oda")
	require.NoError(t, err)

	otherIssuer := NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 24, Issuer: "someone-else"})
	wrongIss, err := otherIssuer.GenerateToken("oda")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "oda",
		Issuer:  config.DefaultJWTIssuer,
	}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    config.DefaultJWTIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		errPart string
	}{
		{name: "empty", token: "", errPart: "empty"},
		{name: "garbage", token: "not-a-jwt", errPart: "malformed"},
		{name: "swapped payload", token: swapPayload(valid, wrongIss), errPart: "signature"},
		{name: "wrong secret", token: wrongSig, errPart: "signature"},
		{name: "wrong issuer", token: wrongIss, errPart: "failed to parse"},
		{name: "alg none", token: noneToken, errPart: "signature"},
		{name: "no subject", token: noSubject, errPart: "no reviewer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func swapPayload(token, donor string) string {
	parts := strings.Split(token, ".")
	parts[1] = strings.Split(donor, ".")[1]
	return strings.Join(parts, ".")
}

func TestJWTService_TokenExpiration(t *testing.T) {
	service := setupTestJWTService(t, 1)
	issued := time.Now()
	service.now = func() time.Time { return issued }

	token, err := service.GenerateToken("oda")
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = service.ValidateToken(token)
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := setupTestJWTService(t, 24)
	token, err := service.GenerateToken("oda")
	require.NoError(t, err)

	got, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "oda", got.GetReviewer())

	_, err = service.AsTokenValidator().ValidateToken("bad")
	assert.Error(t, err)
}
