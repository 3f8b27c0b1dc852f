package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, refreshToken, err := GenerateJWT("64f1c0ffee0000000000abcd", "vendor@example.com", "vendor")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, refreshToken)
	assert.NotEqual(t, token, refreshToken)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64f1c0ffee0000000000abcd", claims.UserID)
	assert.Equal(t, "vendor@example.com", claims.Email)
	assert.Equal(t, "vendor", claims.UserType)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, _, err := GenerateJWT("64f1c0ffee0000000000abcd", "vendor@example.com", "vendor")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "a-different-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestBlacklistedTokenIsRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, _, err := GenerateJWT("64f1c0ffee0000000000abcd", "vendor@example.com", "vendor")
	require.NoError(t, err)

	_, err = ParseToken(token)
	require.NoError(t, err)

	BlacklistToken(token, time.Now().Add(time.Hour))

	_, err = ParseToken(token)
	assert.Error(t, err)
	assert.True(t, IsTokenBlacklisted(token))
}
