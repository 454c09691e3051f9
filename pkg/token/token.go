// Package token issues and validates the opaque bearer tokens used for
// remember-me sessions and confirmation/password-reset flows.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Kind selects the lifetime applied to an issued token.
type Kind string

const (
	// KindRemember is the long-lived persistent sign-in token.
	KindRemember Kind = "remember"
	// KindConfirmation covers both email confirmation and password reset.
	KindConfirmation Kind = "confirmation"
)

const (
	// tokenBytes is the entropy of an issued token before encoding.
	tokenBytes = 32

	// DefaultRememberLifetime matches the classic two-week remember cookie.
	DefaultRememberLifetime = 14 * 24 * time.Hour
	// DefaultConfirmationLifetime bounds confirmation and reset links.
	DefaultConfirmationLifetime = 24 * time.Hour
)

var (
	// ErrTokenMismatch is returned when a presented token is empty or does
	// not equal the stored one.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrTokenExpired is returned when the stored token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Config holds the per-kind token lifetimes.
type Config struct {
	RememberLifetime     time.Duration
	ConfirmationLifetime time.Duration
}

// DefaultConfig returns the default token lifetimes.
func DefaultConfig() Config {
	return Config{
		RememberLifetime:     DefaultRememberLifetime,
		ConfirmationLifetime: DefaultConfirmationLifetime,
	}
}

// Validate checks the lifetime contract: both positive, and confirmation
// tokens expiring strictly sooner than remember tokens.
func (c Config) Validate() error {
	if c.RememberLifetime <= 0 || c.ConfirmationLifetime <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.ConfirmationLifetime >= c.RememberLifetime {
		return fmt.Errorf("confirmation lifetime %s must be shorter than remember lifetime %s",
			c.ConfirmationLifetime, c.RememberLifetime)
	}
	return nil
}

// Issuer generates tokens and computes their expirations.
type Issuer struct {
	config Config
}

// NewIssuer creates an Issuer, validating the config and falling back to
// defaults when a zero Config is given.
func NewIssuer(config Config) (*Issuer, error) {
	if config == (Config{}) {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{config: config}, nil
}

// Generate returns a fresh opaque token: 32 bytes from the system's secure
// random source, hex encoded. Failure of the random source is unrecoverable
// for the caller; no fallback randomness is substituted. crypto/rand may
// block if the kernel entropy pool has not been initialized yet.
func (i *Issuer) Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secure random source failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ExpiryFor returns the absolute expiry for a token of the given kind issued
// at the given time.
func (i *Issuer) ExpiryFor(kind Kind, now time.Time) time.Time {
	switch kind {
	case KindConfirmation:
		return now.Add(i.config.ConfirmationLifetime)
	default:
		return now.Add(i.config.RememberLifetime)
	}
}

// Validate applies the verification rule shared by all token checks: the
// presented token must be non-empty, must equal the stored token under
// constant-time comparison, and the current time must be strictly before the
// stored expiry. A zero expiresAt means the token carries no expiry
// (confirmation tokens are invalidated by being cleared, not by time).
//
// An empty presented token always fails, even when the stored token is also
// empty; a stored-empty-vs-presented-empty pair must never match.
func Validate(presented, stored string, expiresAt, now time.Time) error {
	if presented == "" || stored == "" {
		return ErrTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) != 1 {
		return ErrTokenMismatch
	}
	if !expiresAt.IsZero() && !now.Before(expiresAt) {
		return ErrTokenExpired
	}
	return nil
}
