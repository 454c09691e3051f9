package hasher

import "fmt"

// Scheme identifies the password hashing algorithm used for a credential.
// It is stored alongside the credential so that accounts hashed under the
// legacy scheme keep verifying until their next password change.
type Scheme int

const (
	// SchemeSHA1 is the legacy salted digest scheme.
	SchemeSHA1 Scheme = 1
	// SchemeBcrypt is the adaptive-cost scheme used for all new passwords.
	SchemeBcrypt Scheme = 2

	// CurrentScheme is the scheme used whenever a password is set or reset.
	CurrentScheme = SchemeBcrypt
)

func (s Scheme) String() string {
	switch s {
	case SchemeSHA1:
		return "sha1"
	case SchemeBcrypt:
		return "bcrypt"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// Hasher defines the interface for password hashing implementations.
//
// The salt argument exists for the legacy scheme, which keeps its salt in a
// separate credential field. The bcrypt scheme embeds its own salt inside the
// encoded hash and ignores the argument.
type Hasher interface {
	// Hash hashes a password.
	Hash(password, salt string) (string, error)

	// Verify checks if the provided password matches the stored hash.
	// A mismatch is reported as (false, nil); errors are reserved for
	// malformed input such as an empty password.
	Verify(password, encrypted, salt string) (bool, error)

	// Scheme returns the scheme this hasher implements.
	Scheme() Scheme
}

// Factory returns password hashers by scheme.
type Factory struct {
	hasherMap map[Scheme]Hasher
}

// NewFactory creates a Factory with the given bcrypt cost and registers both
// schemes. The cost is an explicit parameter so that test and production
// behavior is selected by configuration, never by environment detection.
func NewFactory(bcryptCost int) *Factory {
	return &Factory{
		hasherMap: map[Scheme]Hasher{
			SchemeSHA1:   &SHA1Hasher{},
			SchemeBcrypt: NewBcryptHasher(bcryptCost),
		},
	}
}

// GetHasher returns the hasher for the specified scheme.
func (f *Factory) GetHasher(scheme Scheme) (Hasher, error) {
	h, ok := f.hasherMap[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported password scheme: %d", scheme)
	}
	return h, nil
}

// GetCurrentHasher returns the hasher used for new passwords.
func (f *Factory) GetCurrentHasher() Hasher {
	return f.hasherMap[CurrentScheme]
}
