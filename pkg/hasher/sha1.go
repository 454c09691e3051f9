package hasher

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// SHA1Hasher implements Hasher using the legacy salted digest scheme:
// hex(sha1("--" + salt + "--" + password + "--")). The salt is stored in a
// separate credential field, initialized once on first password set and never
// changed afterward while the account exists.
//
// This scheme exists only so accounts hashed under it keep verifying; new
// passwords are always hashed with SchemeBcrypt.
type SHA1Hasher struct{}

// Hash implements Hasher.Hash. A salt is required.
func (h *SHA1Hasher) Hash(password, salt string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if salt == "" {
		return "", errors.New("salt cannot be empty")
	}

	return h.digest(password, salt), nil
}

// Verify implements Hasher.Verify. The recomputed digest is compared with
// constant-time equality to resist timing side channels. An empty stored hash
// means no password is set and verifies false.
func (h *SHA1Hasher) Verify(password, encrypted, salt string) (bool, error) {
	if password == "" {
		return false, errors.New("password cannot be empty")
	}
	if encrypted == "" {
		return false, nil
	}

	computed := h.digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(encrypted)) == 1, nil
}

// Scheme implements Hasher.Scheme.
func (h *SHA1Hasher) Scheme() Scheme {
	return SchemeSHA1
}

func (h *SHA1Hasher) digest(password, salt string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("--%s--%s--", salt, password)))
	return hex.EncodeToString(sum[:])
}
