package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := accounts.NewBcryptHasher(bcrypt.MinCost)

	t.Run("hash and compare round trip", func(t *testing.T) {
		hash, err := hasher.Hash("Secret123!")
		require.NoError(t, err)
		require.NotEmpty(t, hash)
		assert.NotEqual(t, "Secret123!", hash)

		assert.NoError(t, hasher.Compare("Secret123!", hash))
	})

	t.Run("hashes are salted", func(t *testing.T) {
		first, err := hasher.Hash("Secret123!")
		require.NoError(t, err)
		second, err := hasher.Hash("Secret123!")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("mismatch maps to the credential error", func(t *testing.T) {
		hash, err := hasher.Hash("Secret123!")
		require.NoError(t, err)

		err = hasher.Compare("WrongPass1!", hash)
		assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
		assert.True(t, accounts.IsInvalidCredentialsError(err))
	})

	t.Run("rejects empty passwords", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)
	})

	t.Run("garbage hash is not a credential error", func(t *testing.T) {
		err := hasher.Compare("Secret123!", "not-a-bcrypt-hash")
		require.Error(t, err)
		assert.False(t, accounts.IsInvalidCredentialsError(err))
	})
}

func TestNewBcryptHasherCostClamp(t *testing.T) {
	// out of range costs fall back to the default rather than erroring
	for _, cost := range []int{-1, 0, 100} {
		hasher := accounts.NewBcryptHasher(cost)
		hash, err := hasher.Hash("Secret123!")
		require.NoError(t, err)

		actual, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, accounts.DefaultBcryptCost, actual)
	}
}
