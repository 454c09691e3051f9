// Package credential holds the per-account credential state and the stores
// that persist it.
package credential

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearauth/clearauth/pkg/hasher"
)

// Credential is the credential state of one account. The plaintext password
// is never stored; EncryptedPassword is the output of a hasher.Hasher and an
// empty value means no password has been set.
type Credential struct {
	ID    uuid.UUID
	Email string

	EncryptedPassword string
	// Salt is used only by the legacy SHA1 scheme; bcrypt embeds its own
	// salt inside EncryptedPassword.
	Salt   string
	Scheme hasher.Scheme

	// RememberToken, when present, always has a paired expiry that was in
	// the future at the moment it was set. An expired pair is cleared
	// lazily on failed verification, not proactively.
	RememberToken          string
	RememberTokenExpiresAt time.Time

	// ConfirmationToken is single-use and shared between email confirmation
	// and password reset. It carries no stored expiry; clearing it on
	// consumption is what invalidates it.
	ConfirmationToken string
	Confirmed         bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remembered reports whether the credential currently holds a remember token
// that has not expired at the given time.
func (c Credential) Remembered(now time.Time) bool {
	return c.RememberToken != "" && now.Before(c.RememberTokenExpiresAt)
}

// HasPassword reports whether a password has ever been set.
func (c Credential) HasPassword() bool {
	return c.EncryptedPassword != ""
}

// ClearRememberToken removes the remember token and its expiry.
func (c *Credential) ClearRememberToken() {
	c.RememberToken = ""
	c.RememberTokenExpiresAt = time.Time{}
}
