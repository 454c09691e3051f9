package credential

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearauth/clearauth/pkg/hasher"
)

func newTestCredential(t *testing.T, store *InMemoryStore) Credential {
	t.Helper()
	cred, err := store.Create(context.Background(), Credential{
		Email:             "user@example.com",
		EncryptedPassword: "$2a$04$notarealhash",
		Scheme:            hasher.SchemeBcrypt,
	})
	require.NoError(t, err)
	return cred
}

func TestInMemoryStoreCreate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	t.Run("AssignsID", func(t *testing.T) {
		cred := newTestCredential(t, store)
		assert.NotEqual(t, uuid.Nil, cred.ID)
		assert.False(t, cred.CreatedAt.IsZero())
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := store.Create(ctx, Credential{Email: "USER@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateEmail, "email uniqueness is case-insensitive")
	})
}

func TestInMemoryStoreLookups(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	cred := newTestCredential(t, store)

	t.Run("GetByID", func(t *testing.T) {
		got, err := store.GetByID(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, cred.Email, got.Email)

		_, err = store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := store.GetByEmail(ctx, "User@Example.com")
		require.NoError(t, err)
		assert.Equal(t, cred.ID, got.ID)
	})

	t.Run("FindByRememberToken", func(t *testing.T) {
		cred.RememberToken = "remember-tok"
		cred.RememberTokenExpiresAt = time.Now().Add(time.Hour)
		_, err := store.Save(ctx, cred)
		require.NoError(t, err)

		got, err := store.FindByRememberToken(ctx, "remember-tok")
		require.NoError(t, err)
		assert.Equal(t, cred.ID, got.ID)

		_, err = store.FindByRememberToken(ctx, "")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.FindByRememberToken(ctx, "unknown")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("RememberTokenIndexFollowsSave", func(t *testing.T) {
		cred.RememberToken = "rotated-tok"
		_, err := store.Save(ctx, cred)
		require.NoError(t, err)

		_, err = store.FindByRememberToken(ctx, "remember-tok")
		assert.ErrorIs(t, err, ErrNotFound, "old token must stop resolving after rotation")

		got, err := store.FindByRememberToken(ctx, "rotated-tok")
		require.NoError(t, err)
		assert.Equal(t, cred.ID, got.ID)
	})

	t.Run("FindByConfirmationToken", func(t *testing.T) {
		cred.ConfirmationToken = "abc123"
		_, err := store.Save(ctx, cred)
		require.NoError(t, err)

		got, err := store.FindByConfirmationToken(ctx, cred.ID, "abc123")
		require.NoError(t, err)
		assert.Equal(t, cred.ID, got.ID)

		_, err = store.FindByConfirmationToken(ctx, cred.ID, "wrong")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.FindByConfirmationToken(ctx, uuid.New(), "abc123")
		assert.ErrorIs(t, err, ErrNotFound)

		// A blank token never matches, even against a blank stored token.
		cred.ConfirmationToken = ""
		_, err = store.Save(ctx, cred)
		require.NoError(t, err)
		_, err = store.FindByConfirmationToken(ctx, cred.ID, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInMemoryStoreConsumeConfirmationToken(t *testing.T) {
	ctx := context.Background()

	t.Run("Consumes", func(t *testing.T) {
		store := NewInMemoryStore()
		cred := newTestCredential(t, store)
		cred.ConfirmationToken = "tok1"
		_, err := store.Save(ctx, cred)
		require.NoError(t, err)

		updated := cred
		updated.ConfirmationToken = ""
		updated.Confirmed = true

		got, err := store.ConsumeConfirmationToken(ctx, updated, "tok1")
		require.NoError(t, err)
		assert.True(t, got.Confirmed)
		assert.Empty(t, got.ConfirmationToken)

		// Second consumption of the same token loses.
		_, err = store.ConsumeConfirmationToken(ctx, updated, "tok1")
		assert.ErrorIs(t, err, ErrTokenConsumed)
	})

	t.Run("MissingAccount", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.ConsumeConfirmationToken(ctx, Credential{ID: uuid.New()}, "tok1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ExactlyOneConcurrentWinner", func(t *testing.T) {
		store := NewInMemoryStore()
		cred := newTestCredential(t, store)
		cred.ConfirmationToken = "tok1"
		_, err := store.Save(ctx, cred)
		require.NoError(t, err)

		updated := cred
		updated.ConfirmationToken = ""
		updated.Confirmed = true

		const workers = 16
		var wg sync.WaitGroup
		wins := make(chan struct{}, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.ConsumeConfirmationToken(ctx, updated, "tok1"); err == nil {
					wins <- struct{}{}
				}
			}()
		}
		wg.Wait()
		close(wins)

		count := 0
		for range wins {
			count++
		}
		assert.Equal(t, 1, count, "only one concurrent consumer may win")
	})
}

func TestInMemoryStoreSaveUnknownCredential(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Save(context.Background(), Credential{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}
