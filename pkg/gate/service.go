// Package gate orchestrates sign-in, sign-out, remember-token verification,
// and confirmation/reset token consumption. It is the decision logic a
// calling web layer invokes per request: every operation returns a Decision
// value, and Go errors carry only infrastructure faults (store I/O, entropy
// exhaustion), never authentication failure.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearauth/clearauth/pkg/credential"
	"github.com/clearauth/clearauth/pkg/hasher"
	"github.com/clearauth/clearauth/pkg/token"
)

// Service is the authentication gate. It holds no per-request state; the
// credential record itself is owned by the store.
type Service struct {
	store        credential.Store
	hashers      *hasher.Factory
	issuer       *token.Issuer
	hooks        Hooks
	now          func() time.Time
	refreshOnUse bool
}

type Option func(*Service)

// WithHasherFactory overrides the default hasher factory (SecureCost bcrypt).
func WithHasherFactory(f *hasher.Factory) Option {
	return func(s *Service) {
		s.hashers = f
	}
}

// WithIssuer overrides the default token issuer.
func WithIssuer(issuer *token.Issuer) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithHooks sets the notification hooks fired by confirmation and
// password-reset requests.
func WithHooks(hooks Hooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithClock injects the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRefreshOnUse makes SignInByToken rotate the remember token on each
// successful use. Off by default: the source behavior reuses the token across
// requests, and silently changing that security posture is not this package's
// call to make.
func WithRefreshOnUse(refresh bool) Option {
	return func(s *Service) {
		s.refreshOnUse = refresh
	}
}

// NewService creates an authentication gate backed by the given store.
func NewService(store credential.Store, opts ...Option) *Service {
	issuer, err := token.NewIssuer(token.DefaultConfig())
	if err != nil {
		// DefaultConfig always validates; reaching this is a programming error.
		panic(err)
	}

	s := &Service{
		store:   store,
		hashers: hasher.NewFactory(hasher.SecureCost),
		issuer:  issuer,
		hooks:   NoopHooks{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a credential for a new account: the password is hashed
// under the current scheme and a confirmation token is issued and handed to
// the notification hook.
func (s *Service) Register(ctx context.Context, email, password string) (Decision, error) {
	encrypted, err := s.hashers.GetCurrentHasher().Hash(password, "")
	if err != nil {
		return failure(InvalidPassword), nil
	}

	confirmTok, err := s.issuer.Generate()
	if err != nil {
		return Decision{}, err
	}

	cred, err := s.store.Create(ctx, credential.Credential{
		Email:             email,
		EncryptedPassword: encrypted,
		Scheme:            s.hashers.GetCurrentHasher().Scheme(),
		ConfirmationToken: confirmTok,
	})
	if err != nil {
		if errors.Is(err, credential.ErrDuplicateEmail) {
			// Not an authentication outcome; callers match the sentinel.
			return Decision{}, err
		}
		return Decision{}, fmt.Errorf("failed to create credential: %w", err)
	}

	if err := s.hooks.OnConfirmationRequested(ctx, cred, confirmTok); err != nil {
		slog.Error("Failed to deliver confirmation notice", "accountID", cred.ID, "err", err)
	}

	return Decision{
		Outcome:    Success,
		Token:      confirmTok,
		ExpiresAt:  s.issuer.ExpiryFor(token.KindConfirmation, s.now()),
		Credential: cred,
	}, nil
}

// SignIn verifies a plaintext password against the credential, dispatching on
// its hashing scheme. On success a fresh remember token is issued and saved.
// Legacy-scheme credentials are not re-hashed here; migration happens on the
// next password change.
func (s *Service) SignIn(ctx context.Context, cred credential.Credential, password string) (Decision, error) {
	h, err := s.hashers.GetHasher(cred.Scheme)
	if err != nil {
		return Decision{}, err
	}

	match, err := h.Verify(password, cred.EncryptedPassword, cred.Salt)
	if err != nil || !match {
		if err != nil {
			slog.Debug("Password verification failed", "accountID", cred.ID, "err", err)
		}
		return failure(InvalidPassword), nil
	}

	return s.remember(ctx, cred)
}

// SignInByToken validates a presented remember token. The token is reused,
// not rotated, across requests unless refresh-on-use is enabled. An expired
// token is cleared lazily as part of the failed verification.
func (s *Service) SignInByToken(ctx context.Context, presented string) (Decision, error) {
	if presented == "" {
		return failure(InvalidToken), nil
	}

	cred, err := s.store.FindByRememberToken(ctx, presented)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return failure(NotFound), nil
		}
		return Decision{}, err
	}

	switch err := token.Validate(presented, cred.RememberToken, cred.RememberTokenExpiresAt, s.now()); {
	case errors.Is(err, token.ErrTokenExpired):
		cred.ClearRememberToken()
		if _, saveErr := s.store.Save(ctx, cred); saveErr != nil {
			return Decision{}, saveErr
		}
		return failure(ExpiredToken), nil
	case err != nil:
		return failure(InvalidToken), nil
	}

	if s.refreshOnUse {
		return s.remember(ctx, cred)
	}

	return Decision{
		Outcome:    Success,
		Token:      cred.RememberToken,
		ExpiresAt:  cred.RememberTokenExpiresAt,
		Credential: cred,
	}, nil
}

// SignOut clears the remember token and its expiry. The caller is responsible
// for discarding any client-held copy of the token.
func (s *Service) SignOut(ctx context.Context, cred credential.Credential) (credential.Credential, error) {
	cred.ClearRememberToken()
	saved, err := s.store.Save(ctx, cred)
	if err != nil {
		return credential.Credential{}, fmt.Errorf("failed to sign out: %w", err)
	}
	return saved, nil
}

// SetPassword changes the password of a signed-in account without a reset
// token. The new password is hashed under the current scheme, migrating
// legacy credentials off the salted digest, and the remember token is rotated
// so sessions on other clients do not outlive the old password.
func (s *Service) SetPassword(ctx context.Context, cred credential.Credential, password string) (Decision, error) {
	if password == "" {
		return failure(InvalidPassword), nil
	}

	currentHasher := s.hashers.GetCurrentHasher()
	encrypted, err := currentHasher.Hash(password, "")
	if err != nil {
		return Decision{}, fmt.Errorf("failed to hash password: %w", err)
	}

	cred.EncryptedPassword = encrypted
	cred.Scheme = currentHasher.Scheme()
	cred.Salt = ""
	return s.remember(ctx, cred)
}

// RequestConfirmation issues a confirmation token, overwriting any prior
// unconsumed one, and fires the confirmation hook. The confirmed flag is left
// untouched. The returned expiry is advisory; the token itself is invalidated
// by consumption, not time.
func (s *Service) RequestConfirmation(ctx context.Context, cred credential.Credential) (string, time.Time, error) {
	return s.issueConfirmation(ctx, cred, s.hooks.OnConfirmationRequested)
}

// RequestPasswordReset issues a reset token, overwriting any prior unconsumed
// one so at most one is live per account, and fires the reset hook.
func (s *Service) RequestPasswordReset(ctx context.Context, cred credential.Credential) (string, time.Time, error) {
	return s.issueConfirmation(ctx, cred, s.hooks.OnPasswordResetRequested)
}

func (s *Service) issueConfirmation(ctx context.Context, cred credential.Credential, notify func(context.Context, credential.Credential, string) error) (string, time.Time, error) {
	confirmTok, err := s.issuer.Generate()
	if err != nil {
		return "", time.Time{}, err
	}

	cred.ConfirmationToken = confirmTok
	saved, err := s.store.Save(ctx, cred)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to save confirmation token: %w", err)
	}

	if err := notify(ctx, saved, confirmTok); err != nil {
		slog.Error("Failed to deliver notice", "accountID", saved.ID, "err", err)
	}

	return confirmTok, s.issuer.ExpiryFor(token.KindConfirmation, s.now()), nil
}

// ConfirmAccount consumes a confirmation token: on success the account
// becomes confirmed, the token is cleared, and the user is signed in with a
// fresh remember token, all as one atomic transition. A missing account (or a
// blank presented token against an account holding none) is NotFound; any
// other failed match is InvalidToken.
func (s *Service) ConfirmAccount(ctx context.Context, accountID uuid.UUID, presented string) (Decision, error) {
	cred, outcome, err := s.lookupConfirmable(ctx, accountID, presented)
	if err != nil || outcome != Success {
		return failure(outcome), err
	}

	updated := cred
	updated.Confirmed = true
	updated.ConfirmationToken = ""
	return s.consumeAndRemember(ctx, updated, presented)
}

// ResetPassword consumes a reset token and sets a new password. A mismatched
// or empty password confirmation fails without any state change. On success
// the password is re-hashed under the current scheme (migrating legacy
// credentials off the salted digest), the token is cleared, and the user is
// signed in, atomically.
func (s *Service) ResetPassword(ctx context.Context, accountID uuid.UUID, presented, newPassword, newPasswordConfirmation string) (Decision, error) {
	if newPassword == "" || newPassword != newPasswordConfirmation {
		return failure(MismatchedConfirmation), nil
	}

	cred, outcome, err := s.lookupConfirmable(ctx, accountID, presented)
	if err != nil || outcome != Success {
		return failure(outcome), err
	}

	currentHasher := s.hashers.GetCurrentHasher()
	encrypted, err := currentHasher.Hash(newPassword, "")
	if err != nil {
		return Decision{}, fmt.Errorf("failed to hash password: %w", err)
	}

	updated := cred
	updated.EncryptedPassword = encrypted
	updated.Scheme = currentHasher.Scheme()
	updated.Salt = "" // stale legacy salt must not linger after re-hashing
	updated.ConfirmationToken = ""
	return s.consumeAndRemember(ctx, updated, presented)
}

// lookupConfirmable resolves the NotFound/InvalidToken split for token
// consumption. NotFound covers the cases where no account+token pair can be
// asked about at all: the account is missing, or neither side presents a
// token. Once a real token is in play on either side, a failed match is
// InvalidToken, including a replay of an already-consumed token.
func (s *Service) lookupConfirmable(ctx context.Context, accountID uuid.UUID, presented string) (credential.Credential, Outcome, error) {
	cred, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return credential.Credential{}, NotFound, nil
		}
		return credential.Credential{}, NotFound, err
	}

	if presented == "" && cred.ConfirmationToken == "" {
		return credential.Credential{}, NotFound, nil
	}

	if err := token.Validate(presented, cred.ConfirmationToken, time.Time{}, s.now()); err != nil {
		return credential.Credential{}, InvalidToken, nil
	}

	return cred, Success, nil
}

// consumeAndRemember applies the updated credential through the store's
// compare-and-swap and attaches a fresh remember token in the same write.
// Losing the swap to a concurrent consumer yields InvalidToken, never a
// partial credential.
func (s *Service) consumeAndRemember(ctx context.Context, updated credential.Credential, expectedToken string) (Decision, error) {
	rememberTok, err := s.issuer.Generate()
	if err != nil {
		return Decision{}, err
	}

	updated.RememberToken = rememberTok
	updated.RememberTokenExpiresAt = s.issuer.ExpiryFor(token.KindRemember, s.now())

	consumed, err := s.store.ConsumeConfirmationToken(ctx, updated, expectedToken)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrTokenConsumed):
			return failure(InvalidToken), nil
		case errors.Is(err, credential.ErrNotFound):
			return failure(NotFound), nil
		}
		return Decision{}, err
	}

	return Decision{
		Outcome:    Success,
		Token:      consumed.RememberToken,
		ExpiresAt:  consumed.RememberTokenExpiresAt,
		Credential: consumed,
	}, nil
}

// remember issues a fresh remember token and expiry and saves the credential.
func (s *Service) remember(ctx context.Context, cred credential.Credential) (Decision, error) {
	rememberTok, err := s.issuer.Generate()
	if err != nil {
		return Decision{}, err
	}

	cred.RememberToken = rememberTok
	cred.RememberTokenExpiresAt = s.issuer.ExpiryFor(token.KindRemember, s.now())

	saved, err := s.store.Save(ctx, cred)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to save remember token: %w", err)
	}

	return Decision{
		Outcome:    Success,
		Token:      saved.RememberToken,
		ExpiresAt:  saved.RememberTokenExpiresAt,
		Credential: saved,
	}, nil
}
