package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ameynaysathe/chai-backend/cmd/identity/ids"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store never closes it.
// Table identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema holding the users table (default "public").
// The schema name is validated to be a legal PostgreSQL identifier.
//
// migrations.Up creates the table in the connection's search_path, so a
// non-default schema must be provisioned separately or be first on that
// path. CheckSchema reports a mismatch at startup.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "public",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, username, email, email_norm, full_name, password_hash, refresh_token_hash, created_at, updated_at`

// CreateUser inserts a new user row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.PostgresStore.CreateUser"

	u, err := newUser(op, in)
	if err != nil {
		return User{}, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.users()+` (
		     id, username, email, email_norm, full_name, password_hash, refresh_token_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, '', $7, $7)`,
		u.ID, u.Username, u.Email, u.EmailNorm, u.FullName, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByAlternateKey returns the user whose username or normalized email equals identifier.
func (s *PostgresStore) FindByAlternateKey(ctx context.Context, identifier string) (User, error) {
	const op = "identity.PostgresStore.FindByAlternateKey"

	key := NormalizeIdentifier(identifier)
	if key == "" {
		return User{}, invalid(op, "missing identifier")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		   FROM `+s.users()+`
		  WHERE username = $1 OR email_norm = $1
		  LIMIT 1`,
		key,
	)
	return scanUser(op, row)
}

// FindByID returns the user with the given id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (User, error) {
	const op = "identity.PostgresStore.FindByID"

	// Anything that is not a ULID cannot be a row id; skip the round-trip.
	id = strings.TrimSpace(id)
	if !ids.Valid(id) {
		return User{}, userNotFound(op)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		   FROM `+s.users()+`
		  WHERE id = $1`,
		id,
	)
	return scanUser(op, row)
}

// SetRefreshToken overwrites the stored fingerprint; "" clears it.
func (s *PostgresStore) SetRefreshToken(ctx context.Context, id, fingerprint string) error {
	const op = "identity.PostgresStore.SetRefreshToken"

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.users()+`
		    SET refresh_token_hash = $2,
		        updated_at = $3
		  WHERE id = $1`,
		id, fingerprint, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return userNotFound(op)
	}
	return nil
}

// SwapRefreshToken is a single conditional UPDATE: the row lock taken by the
// statement serializes concurrent swaps, and only one of them can still see
// the expected fingerprint.
func (s *PostgresStore) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	const op = "identity.PostgresStore.SwapRefreshToken"

	if expected == "" {
		return false, nil
	}

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.users()+`
		    SET refresh_token_hash = $3,
		        updated_at = $4
		  WHERE id = $1
		    AND refresh_token_hash = $2`,
		id, expected, next, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ct.RowsAffected() == 1, nil
}

// CheckSchema verifies that the users table exists where the store expects it.
func (s *PostgresStore) CheckSchema(ctx context.Context) error {
	const op = "identity.PostgresStore.CheckSchema"

	if _, err := s.pool.Exec(ctx, `SELECT 1 FROM `+s.users()+` LIMIT 0`); err != nil {
		return fmt.Errorf("%s: users table missing in schema %q: %w", op, s.schema, err)
	}
	return nil
}

// ---- helpers ----

func (s *PostgresStore) users() string {
	return pgx.Identifier{s.schema, "users"}.Sanitize()
}

func scanUser(op string, row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.EmailNorm,
		&u.FullName,
		&u.PasswordHash,
		&u.RefreshTokenHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, userNotFound(op)
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable constraint names, fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_users_username", strings.Contains(c, "username"):
		return "username", true
	case c == "uq_users_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
