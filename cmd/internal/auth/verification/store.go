package verification

import (
	"context"
	"time"
)

// Record is one persisted verification token.
type Record struct {
	ID        string
	SubjectID string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
}

// Store is the persistence boundary for verification tokens.
type Store interface {
	// Create inserts rec. A hash collision returns ErrDuplicateHash.
	Create(ctx context.Context, rec Record) error

	// Consume atomically marks the token matching hash and subject as used,
	// provided it is unused and expires after now. Anything else returns
	// ErrNotConsumable.
	Consume(ctx context.Context, hash, subject string, now time.Time) (Record, error)

	// Release undoes a Consume that stamped usedAt, so the token can be
	// redeemed again. It only touches a record still carrying exactly that
	// stamp; otherwise it is a no-op.
	Release(ctx context.Context, hash, subject string, usedAt time.Time) error

	// PurgeCreatedBefore deletes records created before cutoff.
	PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
