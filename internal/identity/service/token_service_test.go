package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_GenerateToken(t *testing.T) {
	service := NewTokenService()

	t.Run("Success_GeneratesValidToken", func(t *testing.T) {
		plainToken, tokenHash, err := service.GenerateToken()
		require.NoError(t, err)

		decoded, err := base64.RawURLEncoding.DecodeString(plainToken)
		require.NoError(t, err)
		assert.Len(t, decoded, 32)
		assert.Len(t, tokenHash, 64)
		assert.Equal(t, service.HashToken(plainToken), tokenHash)
	})

	t.Run("Success_GeneratesUniqueTokens", func(t *testing.T) {
		token1, hash1, err := service.GenerateToken()
		require.NoError(t, err)
		token2, hash2, err := service.GenerateToken()
		require.NoError(t, err)

		assert.NotEqual(t, token1, token2)
		assert.NotEqual(t, hash1, hash2)
	})
}

func TestTokenService_HashToken(t *testing.T) {
	service := NewTokenService()

	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		service.HashToken(""),
	)
	assert.Equal(t, service.HashToken("abc"), service.HashToken("abc"))
	assert.NotEqual(t, service.HashToken("abc"), service.HashToken("abd"))
}
