package gate

import (
	"time"

	"github.com/clearauth/clearauth/pkg/credential"
)

// Outcome is the result code of an authentication operation. Authentication
// failures are ordinary outcomes, not errors: every frequent, expected
// failure mode has its own code so the calling layer can choose a response.
type Outcome string

const (
	Success                Outcome = "success"
	InvalidPassword        Outcome = "invalid_password"
	InvalidToken           Outcome = "invalid_token"
	NotFound               Outcome = "not_found"
	MismatchedConfirmation Outcome = "mismatched_confirmation"
	ExpiredToken           Outcome = "expired_token"
)

// Decision is the value returned by every gate operation. On Success, Token
// and ExpiresAt carry the remember token the calling layer should persist
// (e.g. as a cookie), and Credential is the updated record.
type Decision struct {
	Outcome    Outcome
	Token      string
	ExpiresAt  time.Time
	Credential credential.Credential
}

// OK reports whether the decision granted access.
func (d Decision) OK() bool {
	return d.Outcome == Success
}

func failure(outcome Outcome) Decision {
	return Decision{Outcome: outcome}
}
