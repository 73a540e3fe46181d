// Package migrations embeds the goose schema migrations, one directory per
// supported dialect, and applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/siatlite/casedesk/internal/dbx"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

// goose keeps its base FS and dialect in package globals.
var mu sync.Mutex

// Up applies all pending migrations for dialect d.
func Up(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
	dir, gooseDialect, err := target(d)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, dir)
}

func target(d dbx.Dialect) (dir, gooseDialect string, err error) {
	switch d {
	case dbx.DialectPostgres:
		return PostgresDir, "pgx", nil
	case dbx.DialectSQLite:
		return SQLiteDir, "sqlite3", nil
	default:
		return "", "", fmt.Errorf("no migrations for dialect %q", d)
	}
}
