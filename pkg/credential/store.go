package credential

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors for credential stores. Not finding a credential is a normal
// authentication-failure path, so callers match on ErrNotFound rather than
// treating it as a fault.
var (
	ErrNotFound       = errors.New("credential not found")
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrTokenConsumed is returned when a compare-and-swap on the
	// confirmation token loses to a concurrent consumer.
	ErrTokenConsumed = errors.New("confirmation token already consumed")
)

// Store defines persistence for credentials. Every mutating operation applies
// its credential as a single atomic update; ConsumeConfirmationToken
// additionally guarantees that only one concurrent transition succeeds per
// token value.
type Store interface {
	Create(ctx context.Context, cred Credential) (Credential, error)
	GetByID(ctx context.Context, id uuid.UUID) (Credential, error)
	GetByEmail(ctx context.Context, email string) (Credential, error)
	FindByRememberToken(ctx context.Context, token string) (Credential, error)
	FindByConfirmationToken(ctx context.Context, id uuid.UUID, token string) (Credential, error)
	Save(ctx context.Context, cred Credential) (Credential, error)

	// ConsumeConfirmationToken writes updated only while the stored
	// confirmation token still equals expectedToken. Losers of the race
	// receive ErrTokenConsumed and must not observe a partial credential.
	ConsumeConfirmationToken(ctx context.Context, updated Credential, expectedToken string) (Credential, error)
}

// StoreConfig contains configuration for creating a credential store.
type StoreConfig struct {
	// Pool is required for the postgres store.
	Pool *pgxpool.Pool
}

// NewStore creates a credential store for the given persistence type.
func NewStore(persistenceType string, config StoreConfig) (Store, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres store")
		}
		return NewPostgresStore(config.Pool), nil
	case "memory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, memory)", persistenceType)
	}
}

// tokensEqual compares two non-empty tokens in constant time. Either side
// being empty never matches.
func tokensEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
