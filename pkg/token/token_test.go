package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	issuer, err := NewIssuer(Config{})
	require.NoError(t, err)

	t.Run("LengthAndEncoding", func(t *testing.T) {
		tok, err := issuer.Generate()
		require.NoError(t, err)
		assert.Len(t, tok, 64, "32 random bytes, hex encoded")
		assert.Regexp(t, "^[0-9a-f]+$", tok)
	})

	t.Run("NoCollisions", func(t *testing.T) {
		const n = 10000
		seen := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			tok, err := issuer.Generate()
			require.NoError(t, err)
			_, dup := seen[tok]
			require.False(t, dup, "token collision after %d issues", i)
			seen[tok] = struct{}{}
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("ConfirmationMustExpireSooner", func(t *testing.T) {
		cfg := Config{
			RememberLifetime:     time.Hour,
			ConfirmationLifetime: time.Hour,
		}
		assert.Error(t, cfg.Validate())

		cfg.ConfirmationLifetime = 2 * time.Hour
		assert.Error(t, cfg.Validate())
	})

	t.Run("NonPositiveLifetimes", func(t *testing.T) {
		assert.Error(t, Config{RememberLifetime: time.Hour}.Validate())
		assert.Error(t, Config{ConfirmationLifetime: time.Hour}.Validate())
	})

	t.Run("NewIssuerRejectsBadConfig", func(t *testing.T) {
		_, err := NewIssuer(Config{
			RememberLifetime:     time.Minute,
			ConfirmationLifetime: time.Hour,
		})
		assert.Error(t, err)
	})
}

func TestExpiryFor(t *testing.T) {
	issuer, err := NewIssuer(Config{
		RememberLifetime:     14 * 24 * time.Hour,
		ConfirmationLifetime: 24 * time.Hour,
	})
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(14*24*time.Hour), issuer.ExpiryFor(KindRemember, now))
	assert.Equal(t, now.Add(24*time.Hour), issuer.ExpiryFor(KindConfirmation, now))
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, Validate("abc123", "abc123", future, now))
	})

	t.Run("NoExpiryOnStoredToken", func(t *testing.T) {
		assert.NoError(t, Validate("abc123", "abc123", time.Time{}, now))
	})

	t.Run("Mismatch", func(t *testing.T) {
		assert.ErrorIs(t, Validate("abc124", "abc123", future, now), ErrTokenMismatch)
	})

	t.Run("EmptyPresented", func(t *testing.T) {
		assert.ErrorIs(t, Validate("", "abc123", future, now), ErrTokenMismatch)
	})

	t.Run("EmptyPresentedAndStored", func(t *testing.T) {
		// A blank token must never match a blank stored token.
		assert.ErrorIs(t, Validate("", "", future, now), ErrTokenMismatch)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		assert.ErrorIs(t, Validate("abc123", "abc123", now.Add(-time.Second), now), ErrTokenExpired)
	})

	t.Run("ExpiryBoundaryIsStrict", func(t *testing.T) {
		// now == expiresAt is already expired
		assert.ErrorIs(t, Validate("abc123", "abc123", now, now), ErrTokenExpired)
	})
}
