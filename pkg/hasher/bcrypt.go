package hasher

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// FastCost is the minimum bcrypt cost, intended for tests and CI runs.
	FastCost = bcrypt.MinCost
	// SecureCost is the cost used in production deployments.
	SecureCost = bcrypt.DefaultCost + 2
)

// BcryptHasher implements Hasher using bcrypt. The encoded hash embeds its
// own salt and cost, so the credential salt field is unused by this scheme.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost. Costs outside
// the range bcrypt supports fall back to SecureCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = SecureCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash implements Hasher.Hash. The salt argument is ignored.
func (h *BcryptHasher) Hash(password, _ string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements Hasher.Verify. The stored hash carries its own salt and
// cost, which bcrypt parses and recomputes. An empty stored hash means no
// password is set and verifies false.
func (h *BcryptHasher) Verify(password, encrypted, _ string) (bool, error) {
	if password == "" {
		return false, errors.New("password cannot be empty")
	}
	if encrypted == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(encrypted), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Password doesn't match, but not an error
		}
		return false, err // Some other error occurred
	}

	return true, nil
}

// Scheme implements Hasher.Scheme.
func (h *BcryptHasher) Scheme() Scheme {
	return SchemeBcrypt
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}
