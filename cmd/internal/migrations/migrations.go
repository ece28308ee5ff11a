// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// FS holds the versioned schema files.
//
//go:embed sql/*.sql
var FS embed.FS

const dir = "sql"

var gooseUpContext = goose.UpContext

// Up applies all pending migrations through the given pool.
// Tables are created unqualified, in the first schema on the connection's search_path.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("migrations: nil pool")
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrations: dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
