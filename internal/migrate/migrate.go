// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/yourorg/libris/migrations"
)

// Up runs all pending migrations against an open connection pool.
func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
