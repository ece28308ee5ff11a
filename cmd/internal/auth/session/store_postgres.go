package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store over the refresh_tokens table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore creates a Postgres-backed refresh store in schema.
func NewPostgresStore(pool *pgxpool.Pool, schema string) *PostgresStore {
	if schema == "" {
		schema = "public"
	}
	return &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{schema, "refresh_tokens"}.Sanitize(),
	}
}

// Create inserts a new active record and returns its ULID.
func (s *PostgresStore) Create(ctx context.Context, rec Record) (string, error) {
	id := rec.ID
	if id == "" {
		id = ulid.Make().String()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.table+` (
			id, subject_id, jti, is_revoked, created_at, expires_at, used_at
		) VALUES (
			$1, $2, $3, false, $4, $5, NULL
		)
	`, id, rec.SubjectID, rec.JTI, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicateJTI
		}
		return "", fmt.Errorf("session.PostgresStore.Create: %w", err)
	}

	return id, nil
}

// FindByJTI loads a record by jti.
func (s *PostgresStore) FindByJTI(ctx context.Context, jti string) (Record, error) {
	var rec Record

	err := s.pool.QueryRow(ctx, `
		SELECT id, subject_id, jti, is_revoked, created_at, expires_at, used_at
		FROM `+s.table+`
		WHERE jti = $1
	`, jti).Scan(
		&rec.ID,
		&rec.SubjectID,
		&rec.JTI,
		&rec.IsRevoked,
		&rec.CreatedAt,
		&rec.ExpiresAt,
		&rec.UsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("session.PostgresStore.FindByJTI: %w", err)
	}

	return rec, nil
}

// RevokeIfActive revokes with a single conditional UPDATE. Concurrent callers
// serialize on the row lock; the loser re-evaluates the predicate and matches
// nothing, which reports AlreadyRevoked.
func (s *PostgresStore) RevokeIfActive(ctx context.Context, jti string, revokedAt time.Time) (RevokeOutcome, error) {
	var revoked, present bool

	err := s.pool.QueryRow(ctx, `
		WITH upd AS (
			UPDATE `+s.table+`
			   SET is_revoked = true, used_at = $2
			 WHERE jti = $1 AND is_revoked = false
			RETURNING 1
		)
		SELECT EXISTS (SELECT 1 FROM upd),
		       EXISTS (SELECT 1 FROM `+s.table+` WHERE jti = $1)
	`, jti, revokedAt).Scan(&revoked, &present)
	if err != nil {
		return 0, fmt.Errorf("session.PostgresStore.RevokeIfActive: %w", err)
	}

	switch {
	case revoked:
		return Revoked, nil
	case present:
		return AlreadyRevoked, nil
	default:
		return 0, ErrRecordNotFound
	}
}

// PurgeCreatedBefore deletes records created before cutoff. It backs the
// retention sweeper and is never called from the rotation path.
func (s *PostgresStore) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session.PostgresStore.PurgeCreatedBefore: %w", err)
	}
	return tag.RowsAffected(), nil
}
