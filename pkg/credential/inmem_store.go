package credential

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore implements Store using in-memory maps. Useful for demos and
// tests; all data is lost when the process stops.
type InMemoryStore struct {
	mu               sync.RWMutex
	creds            map[uuid.UUID]Credential
	idsByEmail       map[string]uuid.UUID
	idsByRememberTok map[string]uuid.UUID
}

// NewInMemoryStore creates a new in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		creds:            make(map[uuid.UUID]Credential),
		idsByEmail:       make(map[string]uuid.UUID),
		idsByRememberTok: make(map[string]uuid.UUID),
	}
}

// Create adds a new credential, assigning an ID when none is set.
func (s *InMemoryStore) Create(ctx context.Context, cred Credential) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(cred.Email)
	if _, exists := s.idsByEmail[email]; exists {
		return Credential{}, ErrDuplicateEmail
	}

	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	s.put(cred)
	return cred, nil
}

// GetByID returns the credential for an account ID.
func (s *InMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[id]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

// GetByEmail returns the credential for an email address.
func (s *InMemoryStore) GetByEmail(ctx context.Context, email string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.idsByEmail[normalizeEmail(email)]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return s.creds[id], nil
}

// FindByRememberToken returns the credential holding the given remember
// token. Expiry is not checked here; that is the caller's verification rule.
func (s *InMemoryStore) FindByRememberToken(ctx context.Context, tok string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tok == "" {
		return Credential{}, ErrNotFound
	}
	id, ok := s.idsByRememberTok[tok]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return s.creds[id], nil
}

// FindByConfirmationToken returns the credential only when the account exists
// and holds exactly the given confirmation token.
func (s *InMemoryStore) FindByConfirmationToken(ctx context.Context, id uuid.UUID, tok string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[id]
	if !ok || !tokensEqual(tok, cred.ConfirmationToken) {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

// Save overwrites the stored credential.
func (s *InMemoryStore) Save(ctx context.Context, cred Credential) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[cred.ID]; !ok {
		return Credential{}, ErrNotFound
	}
	cred.UpdatedAt = time.Now()
	s.put(cred)
	return cred, nil
}

// ConsumeConfirmationToken implements the compare-and-swap contract: the
// update applies only while the stored token still equals expectedToken, so
// exactly one of any concurrent consumers wins.
func (s *InMemoryStore) ConsumeConfirmationToken(ctx context.Context, updated Credential, expectedToken string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.creds[updated.ID]
	if !ok {
		return Credential{}, ErrNotFound
	}
	if !tokensEqual(expectedToken, current.ConfirmationToken) {
		return Credential{}, ErrTokenConsumed
	}

	updated.UpdatedAt = time.Now()
	s.put(updated)
	return updated, nil
}

// put stores cred and refreshes the secondary indexes. Caller holds the lock.
func (s *InMemoryStore) put(cred Credential) {
	if old, ok := s.creds[cred.ID]; ok {
		if old.RememberToken != "" && old.RememberToken != cred.RememberToken {
			delete(s.idsByRememberTok, old.RememberToken)
		}
		if normalizeEmail(old.Email) != normalizeEmail(cred.Email) {
			delete(s.idsByEmail, normalizeEmail(old.Email))
		}
	}

	s.creds[cred.ID] = cred
	s.idsByEmail[normalizeEmail(cred.Email)] = cred.ID
	if cred.RememberToken != "" {
		s.idsByRememberTok[cred.RememberToken] = cred.ID
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
