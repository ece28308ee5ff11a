package session

import (
	"context"
	"testing"
	"time"

	"bff/cmd/internal/testutil/pgtest"
)

func TestPostgresStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		pool, schema := pgtest.OpenSchema(t)
		return NewPostgresStore(pool, schema)
	})
}

func TestPostgresStore_PurgeCreatedBefore(t *testing.T) {
	pool, schema := pgtest.OpenSchema(t)
	st := NewPostgresStore(pool, schema)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := st.Create(ctx, Record{SubjectID: "u", JTI: "old", CreatedAt: now.Add(-40 * 24 * time.Hour), ExpiresAt: now.Add(-33 * 24 * time.Hour)}); err != nil {
		t.Fatalf("Create old: %v", err)
	}
	if _, err := st.Create(ctx, Record{SubjectID: "u", JTI: "new", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("Create new: %v", err)
	}

	n, err := st.PurgeCreatedBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeCreatedBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged=%d want 1", n)
	}
}

func TestPostgresService_RotationLifecycle(t *testing.T) {
	pool, schema := pgtest.OpenSchema(t)
	cfg := testConfig(t)
	svc := NewService(cfg, testIssuer(t, cfg), NewPostgresStore(pool, schema))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	p0, err := svc.EstablishSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("EstablishSession: %v", err)
	}
	p1, err := svc.Rotate(ctx, now.Add(time.Minute), p0.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := svc.Rotate(ctx, now.Add(10*time.Minute), p0.RefreshToken); err == nil {
		t.Fatalf("expected replay to fail")
	}
	if err := svc.Terminate(ctx, now.Add(11*time.Minute), p1.RefreshToken, "user-1"); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
}
