package app

import (
	"context"
	"errors"
	"time"

	"bff/cmd/identity"
	"bff/cmd/internal/auth/session"
	"bff/cmd/internal/auth/verification"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backends owns the persistence clients and the stores built on them.
//
// Without BFF_DATABASE_URL every store is in memory. BFF_REDIS_URL moves the
// refresh-token store to Redis regardless of the database mode.
type backends struct {
	users   identity.Store
	refresh session.Store
	verify  verification.Store

	pool  *pgxpool.Pool
	redis *redis.Client

	// purgeable lists stores that need the retention sweeper.
	purgeable map[string]Purger
}

func openBackends(ctx context.Context, cfg Config, log Logger) (*backends, error) {
	b := &backends{purgeable: make(map[string]Purger)}

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		refresh := session.NewMemoryStore(cfg.RefreshRetention)
		verify := verification.NewMemoryStore()
		b.users = identity.NewMemoryStore()
		b.refresh = refresh
		b.verify = verify
		b.purgeable["refresh_tokens"] = refresh
		b.purgeable["email_verification_tokens"] = verify
	} else {
		if err := b.openPostgres(ctx, cfg, log); err != nil {
			b.Close()
			return nil, err
		}
	}

	if cfg.RedisURL != "" {
		client, err := NewRedisClient(ctx, cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.redis = client
		b.refresh = session.NewRedisStore(client, cfg.RedisPrefix, cfg.RefreshRetention)
		delete(b.purgeable, "refresh_tokens")
		log.Info("redis.enabled.refresh_store", "prefix", cfg.RedisPrefix)
	}

	return b, nil
}

func (b *backends) openPostgres(ctx context.Context, cfg Config, log Logger) error {
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	b.pool = pool
	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)

	if cfg.MigrateOnStart {
		if err := migrateDB(ctx, pool, log); err != nil {
			return err
		}
	}

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		return err
	}
	verify, err := verification.NewPostgresStore(pool, verification.WithSchema(cfg.DBSchema))
	if err != nil {
		return err
	}
	refresh := session.NewPostgresStore(pool, cfg.DBSchema)

	b.users = users
	b.refresh = refresh
	b.verify = verify
	b.purgeable["refresh_tokens"] = refresh
	b.purgeable["email_verification_tokens"] = verify
	return nil
}

// ready reports whether every configured backing service answers.
func (b *backends) ready(ctx context.Context) error {
	var errs []error
	if b.pool != nil {
		errs = append(errs, PingDB(ctx, b.pool, 2*time.Second))
	}
	if b.redis != nil {
		errs = append(errs, PingRedis(ctx, b.redis, 2*time.Second))
	}
	return errors.Join(errs...)
}

func (b *backends) dbEnabled() bool { return b.pool != nil }

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
