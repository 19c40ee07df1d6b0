package service

import (
	"testing"

	"github.com/allisson/go-pwdhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretService(t *testing.T) {
	service := NewSecretService(pwdhash.PolicyInteractive)

	t.Run("Success_HashAndCompare", func(t *testing.T) {
		hashed, err := service.HashSecret("smartvm")
		require.NoError(t, err)

		assert.Contains(t, hashed, "$argon2id$")
		assert.NotEqual(t, "smartvm", hashed)
		assert.True(t, service.CompareSecret("smartvm", hashed))
		assert.False(t, service.CompareSecret("wrong", hashed))
	})

	t.Run("Success_SaltedHashesDiffer", func(t *testing.T) {
		hash1, err := service.HashSecret("smartvm")
		require.NoError(t, err)
		hash2, err := service.HashSecret("smartvm")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("Error_InvalidHash", func(t *testing.T) {
		assert.False(t, service.CompareSecret("smartvm", ""))
		assert.False(t, service.CompareSecret("smartvm", "not-a-hash"))
	})
}
