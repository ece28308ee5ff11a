package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists verification tokens in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "public").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("verification: empty schema")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("verification: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "email_verification_tokens"}.Sanitize()
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table()+` (
		     id, subject_id, token_hash, expires_at, created_at, used_at
		   ) VALUES ($1, $2, $3, $4, $5, NULL)`,
		rec.ID,
		rec.SubjectID,
		rec.TokenHash,
		rec.ExpiresAt,
		rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateHash
		}
		return fmt.Errorf("verification.PostgresStore.Create: %w", err)
	}
	return nil
}

// Consume implements Store.
func (s *PostgresStore) Consume(ctx context.Context, hash, subject string, now time.Time) (Record, error) {
	var out Record
	err := s.pool.QueryRow(ctx,
		`UPDATE `+s.table()+`
		    SET used_at = $3
		  WHERE token_hash = $1
		    AND subject_id = $2
		    AND used_at IS NULL
		    AND expires_at > $3
		RETURNING id, subject_id, token_hash, expires_at, created_at, used_at`,
		hash,
		subject,
		now,
	).Scan(
		&out.ID,
		&out.SubjectID,
		&out.TokenHash,
		&out.ExpiresAt,
		&out.CreatedAt,
		&out.UsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotConsumable
	}
	if err != nil {
		return Record{}, fmt.Errorf("verification.PostgresStore.Consume: %w", err)
	}
	return out, nil
}

// Release implements Store.
func (s *PostgresStore) Release(ctx context.Context, hash, subject string, usedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE `+s.table()+`
		    SET used_at = NULL
		  WHERE token_hash = $1
		    AND subject_id = $2
		    AND used_at = $3`,
		hash,
		subject,
		usedAt,
	)
	if err != nil {
		return fmt.Errorf("verification.PostgresStore.Release: %w", err)
	}
	return nil
}

// PurgeCreatedBefore implements Store.
func (s *PostgresStore) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("verification.PostgresStore.PurgeCreatedBefore: %w", err)
	}
	return tag.RowsAffected(), nil
}
