package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"bff/cmd/internal/auth/autherr"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	u, err := s.CreateUser(ctx, CreateUserInput{
		Username:     "alice",
		Email:        " A@B.com ",
		PasswordHash: "$argon2id$stub",
		Now:          now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if len(u.ID) != 26 {
		t.Fatalf("expected ULID id, got %q", u.ID)
	}
	if u.EmailNorm != "a@b.com" || u.Email != "A@B.com" {
		t.Fatalf("email normalization mismatch: %+v", u)
	}

	got, err := s.GetUserByEmail(ctx, "a@b.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("id mismatch: %s vs %s", got.ID, u.ID)
	}

	if _, err := s.GetUserByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_Conflicts(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, CreateUserInput{Username: "alice", Email: "a@b.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err := s.CreateUser(ctx, CreateUserInput{Username: "bobby", Email: "A@b.com", PasswordHash: "h"})
	if field, ok := ConflictField(err); !ok || field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if !errors.Is(err, autherr.ErrDuplicateKey) {
		t.Fatalf("expected DuplicateKey kind, got %v", err)
	}

	_, err = s.CreateUser(ctx, CreateUserInput{Username: "ALICE", Email: "c@d.com", PasswordHash: "h"})
	if field, ok := ConflictField(err); !ok || field != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}
}

func TestMemoryStore_MarkEmailVerified_Idempotent(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, CreateUserInput{Username: "alice", Email: "a@b.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.MarkEmailVerified(ctx, u.ID, first); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}
	if err := s.MarkEmailVerified(ctx, u.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("MarkEmailVerified (repeat): %v", err)
	}

	got, _ := s.GetUserByID(ctx, u.ID)
	if !got.EmailVerified || got.EmailVerifiedAt == nil || !got.EmailVerifiedAt.Equal(first) {
		t.Fatalf("verified state mismatch: %+v", got)
	}

	if err := s.MarkEmailVerified(ctx, "missing", first); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidateRegistrationFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		email    string
		username string
		wantErr  bool
	}{
		{name: "ok", email: "a@b.com", username: "alice"},
		{name: "empty email", email: "", username: "alice", wantErr: true},
		{name: "no at", email: "ab.com", username: "alice", wantErr: true},
		{name: "short username", email: "a@b.com", username: "al", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateEmail(tc.email)
			if err == nil {
				err = ValidateUsername(tc.username)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, autherr.ErrMissingCredentials) {
				t.Fatalf("expected MissingCredentials kind, got %v", err)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := NewULID(time.Now())
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if got, err := ParseID(" " + id + " "); err != nil || got != id {
		t.Fatalf("ParseID(%q)=%q,%v", id, got, err)
	}
	if _, err := ParseID("not-a-ulid"); !errors.Is(err, autherr.ErrInvalidID) {
		t.Fatalf("expected InvalidID, got %v", err)
	}
}
