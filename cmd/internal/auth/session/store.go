package session

import (
	"context"
	"time"
)

// Record mirrors one persisted refresh token.
//
// Invariants: JTI is unique; IsRevoked never reverts; UsedAt is set iff IsRevoked.
type Record struct {
	ID        string
	SubjectID string
	JTI       string
	IsRevoked bool
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// RevokeOutcome is the result of RevokeIfActive.
type RevokeOutcome int

const (
	// Revoked means the record was active and this call revoked it.
	Revoked RevokeOutcome = iota + 1
	// AlreadyRevoked means another caller revoked it first.
	AlreadyRevoked
)

func (o RevokeOutcome) String() string {
	switch o {
	case Revoked:
		return "revoked"
	case AlreadyRevoked:
		return "already_revoked"
	default:
		return "unknown"
	}
}

// Store persists refresh-token records.
//
// Implementations must make RevokeIfActive a single atomic conditional update
// (match is_revoked=false, set is_revoked=true and used_at). Expired records
// are removed by the store's own retention mechanism, never by the service.
type Store interface {
	// Create inserts rec. A jti collision returns ErrDuplicateJTI.
	Create(ctx context.Context, rec Record) (id string, err error)

	// FindByJTI loads a record. Missing returns ErrRecordNotFound.
	FindByJTI(ctx context.Context, jti string) (Record, error)

	// RevokeIfActive atomically revokes an active record.
	RevokeIfActive(ctx context.Context, jti string, revokedAt time.Time) (RevokeOutcome, error)
}
