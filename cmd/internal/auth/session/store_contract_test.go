package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// runStoreContract exercises the behavior every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("create and find", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Microsecond)
		jti := uuid.NewString()

		id, err := st.Create(ctx, Record{SubjectID: "user-1", JTI: jti, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if id == "" {
			t.Fatalf("expected id")
		}

		rec, err := st.FindByJTI(ctx, jti)
		if err != nil {
			t.Fatalf("FindByJTI: %v", err)
		}
		if rec.ID != id || rec.SubjectID != "user-1" || rec.JTI != jti {
			t.Fatalf("record mismatch: %+v", rec)
		}
		if rec.IsRevoked || rec.UsedAt != nil {
			t.Fatalf("new record must be active: %+v", rec)
		}
		if !rec.CreatedAt.Equal(now) || !rec.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("timestamps mismatch: %+v", rec)
		}
	})

	t.Run("duplicate jti", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()
		jti := uuid.NewString()

		if _, err := st.Create(ctx, Record{SubjectID: "user-1", JTI: jti, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		_, err := st.Create(ctx, Record{SubjectID: "user-2", JTI: jti, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
		if !errors.Is(err, ErrDuplicateJTI) {
			t.Fatalf("expected ErrDuplicateJTI, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		if _, err := st.FindByJTI(ctx, uuid.NewString()); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("FindByJTI: expected ErrRecordNotFound, got %v", err)
		}
		if _, err := st.RevokeIfActive(ctx, uuid.NewString(), time.Now()); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("RevokeIfActive: expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("revoke once", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Microsecond)
		jti := uuid.NewString()

		if _, err := st.Create(ctx, Record{SubjectID: "user-1", JTI: jti, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
			t.Fatalf("Create: %v", err)
		}

		usedAt := now.Add(time.Second)
		out, err := st.RevokeIfActive(ctx, jti, usedAt)
		if err != nil || out != Revoked {
			t.Fatalf("first revoke: out=%v err=%v", out, err)
		}
		out, err = st.RevokeIfActive(ctx, jti, usedAt.Add(time.Minute))
		if err != nil || out != AlreadyRevoked {
			t.Fatalf("second revoke: out=%v err=%v", out, err)
		}

		rec, err := st.FindByJTI(ctx, jti)
		if err != nil {
			t.Fatalf("FindByJTI: %v", err)
		}
		if !rec.IsRevoked || rec.UsedAt == nil || !rec.UsedAt.Equal(usedAt) {
			t.Fatalf("expected revoked at first use: %+v", rec)
		}
	})

	t.Run("concurrent revoke has one winner", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()
		jti := uuid.NewString()

		if _, err := st.Create(ctx, Record{SubjectID: "user-1", JTI: jti, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
			t.Fatalf("Create: %v", err)
		}

		const n = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := st.RevokeIfActive(ctx, jti, time.Now())
				if err != nil {
					t.Errorf("RevokeIfActive: %v", err)
					return
				}
				if out == Revoked {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if winners != 1 {
			t.Fatalf("expected exactly one winner, got %d", winners)
		}
	})
}
