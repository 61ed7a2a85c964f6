package auth

import (
	"testing"
	"time"

	"galaxy-server/internal/shared/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokens(t *testing.T) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(config.AuthConfig{JWTSecret: testSecret, TokenExpiration: time.Hour})
	require.NoError(t, err)
	return tokens
}

func TestNewTokenServiceRejectsWeakSecret(t *testing.T) {
	_, err := NewTokenService(config.AuthConfig{})
	assert.ErrorContains(t, err, "required")

	_, err = NewTokenService(config.AuthConfig{JWTSecret: "short"})
	assert.ErrorContains(t, err, "32 characters")
}

func TestGenerateAndValidate(t *testing.T) {
	tokens := newTestTokens(t)

	token, err := tokens.GenerateJWT("ops", RoleAdmin)
	require.NoError(t, err)

	claims, err := tokens.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.IsAdmin())
}

func TestValidateRejectsExpired(t *testing.T) {
	tokens := newTestTokens(t)
	issued := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return issued }

	token, err := tokens.GenerateJWT("ops", RoleAdmin)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.ValidateJWT(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	tokens := newTestTokens(t)
	other, err := NewTokenService(config.AuthConfig{JWTSecret: "fedcba9876543210fedcba9876543210"})
	require.NoError(t, err)

	token, err := other.GenerateJWT("ops", RoleAdmin)
	require.NoError(t, err)

	_, err = tokens.ValidateJWT(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	tokens := newTestTokens(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokens.ValidateJWT(token)
	assert.Error(t, err)
}
