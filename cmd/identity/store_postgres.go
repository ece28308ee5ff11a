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
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store never closes it.
// Schema identifiers are quoted via pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
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

const userColumns = `id, username, username_norm, email, email_norm, password_hash, email_verified, email_verified_at, created_at`

// CreateUser implements Store.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	in, err := validateCreate(op, in)
	if err != nil {
		return User{}, err
	}

	userID, err := NewULID(in.Now)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           userID,
		Username:     in.Username,
		UsernameNorm: NormalizeUsername(in.Username),
		Email:        in.Email,
		EmailNorm:    NormalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		CreatedAt:    in.Now,
	}

	users := pgIdent(s.schema, "users")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, username, username_norm, email, email_norm, password_hash, email_verified, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, false, $7)`,
		u.ID,
		u.Username,
		u.UsernameNorm,
		u.Email,
		u.EmailNorm,
		u.PasswordHash,
		u.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// GetUserByEmail implements Store.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+pgIdent(s.schema, "users")+` WHERE email_norm = $1`,
		norm,
	)
	return scanUser(op, row)
}

// GetUserByID implements Store.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+pgIdent(s.schema, "users")+` WHERE id = $1`,
		strings.TrimSpace(id),
	)
	return scanUser(op, row)
}

// MarkEmailVerified implements Store.
func (s *PostgresStore) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	const op = "identity.MarkEmailVerified"

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "users")+`
		    SET email_verified = true,
		        email_verified_at = COALESCE(email_verified_at, $2)
		  WHERE id = $1`,
		strings.TrimSpace(id), now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

func scanUser(op string, row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.UsernameNorm,
		&u.Email,
		&u.EmailNorm,
		&u.PasswordHash,
		&u.EmailVerified,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// pgIdentIsValid checks if a string is a safe Postgres identifier.
func pgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_users_username_norm":
		return "username", true
	case "uq_users_email_norm":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "username"):
			return "username", true
		case strings.Contains(c, "email"):
			return "email", true
		default:
			return "unique", true
		}
	}
}
