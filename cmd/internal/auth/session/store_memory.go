package session

import (
	"context"
	"sync"
	"time"

	"bff/cmd/identity/ids"
)

// MemoryStore is an in-process Store with the same atomicity contract as the
// database stores. Records older than the retention window are dropped lazily.
type MemoryStore struct {
	mu        sync.Mutex
	byJTI     map[string]Record
	retention time.Duration
	now       func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock the retention window is measured against.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore returns an empty MemoryStore. retention <= 0 keeps records forever.
func NewMemoryStore(retention time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		byJTI:     make(map[string]Record),
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, rec Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byJTI[rec.JTI]; ok {
		return "", ErrDuplicateJTI
	}

	if rec.ID == "" {
		id, err := ids.NewULID(rec.CreatedAt)
		if err != nil {
			return "", err
		}
		rec.ID = id
	}
	rec.IsRevoked = false
	rec.UsedAt = nil
	s.byJTI[rec.JTI] = rec
	return rec.ID, nil
}

// FindByJTI implements Store.
func (s *MemoryStore) FindByJTI(ctx context.Context, jti string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupLocked(jti, s.now())
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// RevokeIfActive implements Store.
func (s *MemoryStore) RevokeIfActive(ctx context.Context, jti string, revokedAt time.Time) (RevokeOutcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupLocked(jti, s.now())
	if !ok {
		return 0, ErrRecordNotFound
	}
	if rec.IsRevoked {
		return AlreadyRevoked, nil
	}

	at := revokedAt
	rec.IsRevoked = true
	rec.UsedAt = &at
	s.byJTI[jti] = rec
	return Revoked, nil
}

// PurgeCreatedBefore drops records created before cutoff.
func (s *MemoryStore) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for jti, rec := range s.byJTI {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.byJTI, jti)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) lookupLocked(jti string, now time.Time) (Record, bool) {
	rec, ok := s.byJTI[jti]
	if !ok {
		return Record{}, false
	}
	if s.retention > 0 && now.Sub(rec.CreatedAt) > s.retention {
		delete(s.byJTI, jti)
		return Record{}, false
	}
	return rec, true
}
