package accounts_test

import (
	"strings"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *accounts.Account {
	return &accounts.Account{
		ID:        uuid.New(),
		FirstName: "Pepe",
		LastName:  "Rone",
		Email:     "pepe@example.com",
	}
}

func newTestTokenService(t *testing.T, clock *fakeClock) *accounts.TokenServiceImpl {
	t.Helper()

	ts, err := accounts.NewTokenService(testConfig(), nil)
	require.NoError(t, err)
	if clock != nil {
		ts.WithClock(clock.Now)
	}
	return ts
}

func TestNewTokenService(t *testing.T) {
	t.Run("rejects short signing keys", func(t *testing.T) {
		cfg := testConfig()
		cfg.SigningKey = "0123456789abcdef"

		_, err := accounts.NewTokenService(cfg, nil)
		assert.ErrorIs(t, err, accounts.ErrSigningKeyTooShort)
	})

	t.Run("accepts a 32 byte key", func(t *testing.T) {
		_, err := accounts.NewTokenService(testConfig(), nil)
		assert.NoError(t, err)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	account := testAccount()
	ts := newTestTokenService(t, nil)

	t.Run("access token", func(t *testing.T) {
		raw, expiresIn, err := ts.IssueAccessToken(account)
		require.NoError(t, err)
		assert.Equal(t, int64(900), expiresIn)

		claims, err := ts.Validate(raw)
		require.NoError(t, err)

		assert.Equal(t, account.Email, claims.Subject)
		assert.Equal(t, account.Email, claims.Email)
		assert.Equal(t, account.ID.String(), claims.UserID())
		assert.Equal(t, "Pepe Rone", claims.FullName)
		assert.Equal(t, "accounts-test", claims.Issuer)
		assert.True(t, claims.IsAccess())
		assert.False(t, claims.IsRefresh())
	})

	t.Run("refresh token", func(t *testing.T) {
		raw, err := ts.IssueRefreshToken(account)
		require.NoError(t, err)

		claims, err := ts.Validate(raw)
		require.NoError(t, err)
		assert.True(t, claims.IsRefresh())
		assert.Empty(t, claims.FullName)
	})
}

func TestTokenValidation(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	account := testAccount()

	t.Run("expired access token", func(t *testing.T) {
		ts := newTestTokenService(t, clock)

		raw, _, err := ts.IssueAccessToken(account)
		require.NoError(t, err)

		clock.Advance(16 * time.Minute)

		_, err = ts.Validate(raw)
		assert.ErrorIs(t, err, accounts.ErrTokenExpired)
		assert.True(t, accounts.IsTokenExpiredError(err))
	})

	t.Run("garbage input", func(t *testing.T) {
		ts := newTestTokenService(t, nil)

		_, err := ts.Validate("not-a-jwt")
		require.Error(t, err)
		assert.True(t, accounts.IsTokenMalformedError(err))
	})

	t.Run("tampered signature", func(t *testing.T) {
		ts := newTestTokenService(t, nil)

		raw, _, err := ts.IssueAccessToken(account)
		require.NoError(t, err)

		parts := strings.Split(raw, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "." + "AAAA"

		_, err = ts.Validate(tampered)
		require.Error(t, err)
		assert.True(t, accounts.IsTokenMalformedError(err))
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		other := testConfig()
		other.SigningKey = "ffffffffffffffffffffffffffffffff"
		foreign, err := accounts.NewTokenService(other, nil)
		require.NoError(t, err)

		raw, _, err := foreign.IssueAccessToken(account)
		require.NoError(t, err)

		ts := newTestTokenService(t, nil)
		_, err = ts.Validate(raw)
		assert.Error(t, err)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other := testConfig()
		other.Issuer = "someone-else"
		foreign, err := accounts.NewTokenService(other, nil)
		require.NoError(t, err)

		raw, _, err := foreign.IssueAccessToken(account)
		require.NoError(t, err)

		ts := newTestTokenService(t, nil)
		_, err = ts.Validate(raw)
		assert.Error(t, err)
	})
}

func TestTokenType(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	account := testAccount()

	t.Run("valid tokens", func(t *testing.T) {
		ts := newTestTokenService(t, nil)

		access, _, err := ts.IssueAccessToken(account)
		require.NoError(t, err)
		assert.Equal(t, accounts.TokenKindAccess, ts.TokenType(access))

		refresh, err := ts.IssueRefreshToken(account)
		require.NoError(t, err)
		assert.Equal(t, accounts.TokenKindRefresh, ts.TokenType(refresh))
	})

	t.Run("expiry keeps the type tag", func(t *testing.T) {
		ts := newTestTokenService(t, clock)

		raw, _, err := ts.IssueAccessToken(account)
		require.NoError(t, err)

		clock.Advance(16 * time.Minute)
		assert.Equal(t, accounts.TokenKindAccess, ts.TokenType(raw))
	})

	t.Run("garbage yields empty", func(t *testing.T) {
		ts := newTestTokenService(t, nil)
		assert.Equal(t, "", ts.TokenType("garbage"))
		assert.Equal(t, "", ts.TokenType(""))
	})
}

func TestNewOpaqueToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := accounts.NewOpaqueToken()
		require.NotEmpty(t, token)
		require.False(t, seen[token], "opaque tokens must not repeat")
		seen[token] = true
	}
}
