package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearauth/clearauth/pkg/hasher"
)

// Schema is the credentials table definition. Callers that manage their own
// migrations can ignore it; the server command applies it at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	encrypted_password TEXT NOT NULL DEFAULT '',
	salt TEXT,
	scheme INT NOT NULL,
	remember_token TEXT UNIQUE,
	remember_token_expires_at TIMESTAMPTZ,
	confirmation_token TEXT,
	confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const credentialColumns = `
	id, email, encrypted_password, salt, scheme,
	remember_token, remember_token_expires_at,
	confirmation_token, confirmed, created_at, updated_at
`

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL credential store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new credential, assigning an ID when none is set.
func (s *PostgresStore) Create(ctx context.Context, cred Credential) (Credential, error) {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}

	query := `
		INSERT INTO credentials (
			id, email, encrypted_password, salt, scheme,
			remember_token, remember_token_expires_at, confirmation_token, confirmed
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING ` + credentialColumns

	row := s.pool.QueryRow(ctx, query,
		cred.ID,
		normalizeEmail(cred.Email),
		cred.EncryptedPassword,
		nullString(cred.Salt),
		int32(cred.Scheme),
		nullString(cred.RememberToken),
		nullTime(cred.RememberTokenExpiresAt),
		nullString(cred.ConfirmationToken),
		cred.Confirmed,
	)

	created, err := scanCredential(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "email") {
			return Credential{}, ErrDuplicateEmail
		}
		return Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}
	return created, nil
}

// GetByID returns the credential for an account ID.
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	return s.queryOne(ctx, query, id)
}

// GetByEmail returns the credential for an email address.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE email = $1`
	return s.queryOne(ctx, query, normalizeEmail(email))
}

// FindByRememberToken returns the credential holding the given remember token.
func (s *PostgresStore) FindByRememberToken(ctx context.Context, tok string) (Credential, error) {
	if tok == "" {
		return Credential{}, ErrNotFound
	}
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE remember_token = $1`
	return s.queryOne(ctx, query, tok)
}

// FindByConfirmationToken returns the credential only when the account exists
// and holds exactly the given confirmation token.
func (s *PostgresStore) FindByConfirmationToken(ctx context.Context, id uuid.UUID, tok string) (Credential, error) {
	cred, err := s.GetByID(ctx, id)
	if err != nil {
		return Credential{}, err
	}
	if !tokensEqual(tok, cred.ConfirmationToken) {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

// Save overwrites the stored credential in a single update.
func (s *PostgresStore) Save(ctx context.Context, cred Credential) (Credential, error) {
	query := `
		UPDATE credentials SET
			email = $2,
			encrypted_password = $3,
			salt = $4,
			scheme = $5,
			remember_token = $6,
			remember_token_expires_at = $7,
			confirmation_token = $8,
			confirmed = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + credentialColumns

	row := s.pool.QueryRow(ctx, query,
		cred.ID,
		normalizeEmail(cred.Email),
		cred.EncryptedPassword,
		nullString(cred.Salt),
		int32(cred.Scheme),
		nullString(cred.RememberToken),
		nullTime(cred.RememberTokenExpiresAt),
		nullString(cred.ConfirmationToken),
		cred.Confirmed,
	)

	saved, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("failed to save credential: %w", err)
	}
	return saved, nil
}

// ConsumeConfirmationToken applies the update only while the stored token
// still equals expectedToken. The WHERE clause is the compare-and-swap: under
// concurrent consumption exactly one update matches a row.
func (s *PostgresStore) ConsumeConfirmationToken(ctx context.Context, updated Credential, expectedToken string) (Credential, error) {
	if expectedToken == "" {
		return Credential{}, ErrTokenConsumed
	}

	query := `
		UPDATE credentials SET
			encrypted_password = $3,
			salt = $4,
			scheme = $5,
			remember_token = $6,
			remember_token_expires_at = $7,
			confirmation_token = $8,
			confirmed = $9,
			updated_at = NOW()
		WHERE id = $1 AND confirmation_token = $2
		RETURNING ` + credentialColumns

	row := s.pool.QueryRow(ctx, query,
		updated.ID,
		expectedToken,
		updated.EncryptedPassword,
		nullString(updated.Salt),
		int32(updated.Scheme),
		nullString(updated.RememberToken),
		nullTime(updated.RememberTokenExpiresAt),
		nullString(updated.ConfirmationToken),
		updated.Confirmed,
	)

	consumed, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing account from a lost race.
			if _, getErr := s.GetByID(ctx, updated.ID); errors.Is(getErr, ErrNotFound) {
				return Credential{}, ErrNotFound
			}
			return Credential{}, ErrTokenConsumed
		}
		return Credential{}, fmt.Errorf("failed to consume confirmation token: %w", err)
	}
	return consumed, nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (Credential, error) {
	cred, err := scanCredential(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("failed to query credential: %w", err)
	}
	return cred, nil
}

func scanCredential(row pgx.Row) (Credential, error) {
	var (
		cred      Credential
		scheme    int32
		salt      sql.NullString
		remTok    sql.NullString
		remExp    sql.NullTime
		confirmTk sql.NullString
	)

	err := row.Scan(
		&cred.ID,
		&cred.Email,
		&cred.EncryptedPassword,
		&salt,
		&scheme,
		&remTok,
		&remExp,
		&confirmTk,
		&cred.Confirmed,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return Credential{}, err
	}

	cred.Scheme = hasher.Scheme(scheme)
	cred.Salt = salt.String
	cred.RememberToken = remTok.String
	if remExp.Valid {
		cred.RememberTokenExpiresAt = remExp.Time
	}
	cred.ConfirmationToken = confirmTk.String
	return cred, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
