package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]User
	byEmail    map[string]string
	byUsername map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// CreateUser implements Store.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	in, err := validateCreate(op, in)
	if err != nil {
		return User{}, err
	}

	id, err := NewULID(in.Now)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           id,
		Username:     in.Username,
		UsernameNorm: NormalizeUsername(in.Username),
		Email:        in.Email,
		EmailNorm:    NormalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		CreatedAt:    in.Now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.EmailNorm]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}
	if _, ok := s.byUsername[u.UsernameNorm]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	s.byID[u.ID] = u
	s.byEmail[u.EmailNorm] = u.ID
	s.byUsername[u.UsernameNorm] = u.ID
	return u, nil
}

// GetUserByEmail implements Store.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByEmail", Resource: "user"}
	}
	return s.byID[id], nil
}

// GetUserByID implements Store.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByID", Resource: "user"}
	}
	return u, nil
}

// MarkEmailVerified implements Store.
func (s *MemoryStore) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return NotFoundError{Op: "identity.MarkEmailVerified", Resource: "user"}
	}
	if u.EmailVerified {
		return nil
	}
	at := now.UTC()
	u.EmailVerified = true
	u.EmailVerifiedAt = &at
	s.byID[id] = u
	return nil
}

func trim(s string) string { return strings.TrimSpace(s) }
