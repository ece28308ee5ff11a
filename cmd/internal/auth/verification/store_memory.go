package verification

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	byHash map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]Record)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHash[rec.TokenHash]; ok {
		return ErrDuplicateHash
	}
	rec.UsedAt = nil
	s.byHash[rec.TokenHash] = rec
	return nil
}

// Consume implements Store.
func (s *MemoryStore) Consume(ctx context.Context, hash, subject string, now time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byHash[hash]
	if !ok || rec.SubjectID != subject || rec.UsedAt != nil || !rec.ExpiresAt.After(now) {
		return Record{}, ErrNotConsumable
	}
	at := now
	rec.UsedAt = &at
	s.byHash[hash] = rec
	return rec, nil
}

// Release implements Store.
func (s *MemoryStore) Release(ctx context.Context, hash, subject string, usedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byHash[hash]
	if ok && rec.SubjectID == subject && rec.UsedAt != nil && rec.UsedAt.Equal(usedAt) {
		rec.UsedAt = nil
		s.byHash[hash] = rec
	}
	return nil
}

// PurgeCreatedBefore implements Store.
func (s *MemoryStore) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for h, rec := range s.byHash {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.byHash, h)
			n++
		}
	}
	return n, nil
}
