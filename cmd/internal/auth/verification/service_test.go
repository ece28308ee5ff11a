package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bff/cmd/identity"
	"bff/cmd/internal/auth/autherr"
	"bff/cmd/security/token"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type countingVerifier struct {
	inner UserVerifier
	calls atomic.Int32
}

func (c *countingVerifier) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	c.calls.Add(1)
	return c.inner.MarkEmailVerified(ctx, id, now)
}

type fixture struct {
	svc   *Service
	store *MemoryStore
	users *identity.MemoryStore
	calls *countingVerifier
	user  identity.User
}

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) fixture {
	t.Helper()

	users := identity.NewMemoryStore()
	u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Username:     "alice_w",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$placeholder",
		Now:          t0,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	st := NewMemoryStore()
	cv := &countingVerifier{inner: users}
	svc, err := NewService(st, cv,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRegisterer(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return fixture{svc: svc, store: st, users: users, calls: cv, user: u}
}

func TestIssue_StoresOnlyTheHash(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	raw, err := f.svc.Issue(context.Background(), t0, f.user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("raw token length=%d want 64", len(raw))
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.byHash[raw]; ok {
		t.Fatalf("raw token must not be a store key")
	}
	rec, ok := f.store.byHash[token.HashSHA256Hex(raw)]
	if !ok {
		t.Fatalf("expected record under the token hash")
	}
	if rec.SubjectID != f.user.ID || !rec.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("record mismatch: %+v", rec)
	}
}

func TestConsume_OnceThenInvalid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	raw, err := f.svc.Issue(ctx, t0, f.user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := f.svc.Consume(ctx, t0.Add(10*time.Minute), raw, f.user.ID); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	u, err := f.users.GetUserByID(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !u.EmailVerified {
		t.Fatalf("user should be verified")
	}

	err = f.svc.Consume(ctx, t0.Add(11*time.Minute), raw, f.user.ID)
	if !errors.Is(err, autherr.ErrInvalidToken) {
		t.Fatalf("second consume: expected InvalidToken, got %v", err)
	}
	if n := f.calls.calls.Load(); n != 1 {
		t.Fatalf("MarkEmailVerified calls=%d want 1", n)
	}
	if got := testutil.ToFloat64(f.svc.consumed.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok counter=%v", got)
	}
}

func TestConsume_Rejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	raw, err := f.svc.Issue(ctx, t0, f.user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name    string
		raw     string
		subject string
		at      time.Time
	}{
		{name: "empty token", raw: "", subject: f.user.ID, at: t0},
		{name: "unknown token", raw: "deadbeef", subject: f.user.ID, at: t0},
		{name: "other subject", raw: raw, subject: "01HZZZZZZZZZZZZZZZZZZZZZZZ", at: t0},
		{name: "at expiry", raw: raw, subject: f.user.ID, at: t0.Add(time.Hour)},
		{name: "after expiry", raw: raw, subject: f.user.ID, at: t0.Add(2 * time.Hour)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.Consume(ctx, tc.at, tc.raw, tc.subject)
			if !errors.Is(err, autherr.ErrInvalidToken) {
				t.Fatalf("expected InvalidToken, got %v", err)
			}
		})
	}

	if n := f.calls.calls.Load(); n != 0 {
		t.Fatalf("MarkEmailVerified must not run on rejection, calls=%d", n)
	}

	// None of the rejections spent the token.
	if err := f.svc.Consume(ctx, t0.Add(time.Minute), raw, f.user.ID); err != nil {
		t.Fatalf("Consume after rejections: %v", err)
	}
}

func TestConsume_ConcurrentHasOneWinner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	raw, err := f.svc.Issue(ctx, t0, f.user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const n = 10
	var (
		wg  sync.WaitGroup
		ok  atomic.Int32
		bad atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.Consume(ctx, t0.Add(time.Minute), raw, f.user.ID); err == nil {
				ok.Add(1)
			} else if errors.Is(err, autherr.ErrInvalidToken) {
				bad.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || bad.Load() != n-1 {
		t.Fatalf("ok=%d invalid=%d", ok.Load(), bad.Load())
	}
	if f.calls.calls.Load() != 1 {
		t.Fatalf("MarkEmailVerified calls=%d want 1", f.calls.calls.Load())
	}
}

func TestConsume_UnknownUserIsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	ghost := "01J00000000000000000000000"
	raw, err := f.svc.Issue(ctx, t0, ghost)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := f.svc.Consume(ctx, t0, raw, ghost); !errors.Is(err, autherr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

type collidingStore struct{ *MemoryStore }

func (collidingStore) Create(context.Context, Record) error { return ErrDuplicateHash }

func TestIssue_HashCollisionIsDuplicateKey(t *testing.T) {
	t.Parallel()

	svc, err := NewService(collidingStore{NewMemoryStore()}, identity.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	_, err = svc.Issue(context.Background(), t0, "01J00000000000000000000000")
	if autherr.KindOf(err) != autherr.ErrDuplicateKey {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}
}

func TestNewService_Options(t *testing.T) {
	t.Parallel()

	if _, err := NewService(nil, identity.NewMemoryStore()); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewService(NewMemoryStore(), identity.NewMemoryStore(), WithTTL(0)); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	svc, err := NewService(NewMemoryStore(), identity.NewMemoryStore(), WithTTL(30*time.Minute))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc.TTL() != 30*time.Minute {
		t.Fatalf("ttl=%v", svc.TTL())
	}
}

type flakyVerifier struct {
	inner UserVerifier
	fails atomic.Int32
	calls atomic.Int32
}

func (f *flakyVerifier) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	f.calls.Add(1)
	if f.fails.Add(-1) >= 0 {
		return errors.New("connection reset")
	}
	return f.inner.MarkEmailVerified(ctx, id, now)
}

func TestConsume_FailedFlagWriteLeavesTokenRedeemable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	fv := &flakyVerifier{inner: f.users}
	fv.fails.Store(1)
	svc, err := NewService(f.store, fv, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	raw, err := svc.Issue(ctx, t0, f.user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	err = svc.Consume(ctx, t0.Add(time.Minute), raw, f.user.ID)
	if autherr.KindOf(err) != autherr.ErrStorage {
		t.Fatalf("first consume: expected StorageError, got %v", err)
	}
	if u, _ := f.users.GetUserByID(ctx, f.user.ID); u.EmailVerified {
		t.Fatalf("user verified despite failed write")
	}

	if err := svc.Consume(ctx, t0.Add(2*time.Minute), raw, f.user.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	u, err := f.users.GetUserByID(ctx, f.user.ID)
	if err != nil || !u.EmailVerified {
		t.Fatalf("user not verified after retry: %+v err=%v", u, err)
	}

	if err := svc.Consume(ctx, t0.Add(3*time.Minute), raw, f.user.ID); !errors.Is(err, autherr.ErrInvalidToken) {
		t.Fatalf("third consume: expected InvalidToken, got %v", err)
	}
	if fv.calls.Load() != 2 {
		t.Fatalf("MarkEmailVerified calls=%d want 2", fv.calls.Load())
	}
}

func TestMemoryStore_ReleaseMatchesStamp(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	ctx := context.Background()
	hash := token.HashSHA256Hex("raw")
	if err := st.Create(ctx, Record{ID: "r1", SubjectID: "u1", TokenHash: hash, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := st.Consume(ctx, hash, "u1", t0.Add(time.Minute)); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	// A stale stamp or a different subject leaves the record spent.
	_ = st.Release(ctx, hash, "u1", t0)
	_ = st.Release(ctx, hash, "u2", t0.Add(time.Minute))
	if _, err := st.Consume(ctx, hash, "u1", t0.Add(2*time.Minute)); !errors.Is(err, ErrNotConsumable) {
		t.Fatalf("expected still spent, got %v", err)
	}

	if err := st.Release(ctx, hash, "u1", t0.Add(time.Minute)); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := st.Consume(ctx, hash, "u1", t0.Add(3*time.Minute)); err != nil {
		t.Fatalf("Consume after release: %v", err)
	}
}
