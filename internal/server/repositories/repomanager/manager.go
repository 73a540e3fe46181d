// Package repomanager vends dialect-specific repositories bound to either a
// connection pool or a transaction.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/server/migrations"
	"github.com/siatlite/casedesk/internal/server/repositories/accidents"
	"github.com/siatlite/casedesk/internal/server/repositories/authtokens"
	"github.com/siatlite/casedesk/internal/server/repositories/users"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	AuthTokens(db dbx.DBTX) authtokens.Repository
	Accidents(db dbx.DBTX) accidents.Repository
}

// migrateUp is a seam for tests.
var migrateUp = migrations.Up

// New returns the manager for dialect d.
func New(d dbx.Dialect) (RepositoryManager, error) {
	switch d {
	case dbx.DialectPostgres:
		return NewPostgresRepositoryManager(), nil
	case dbx.DialectSQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", d)
	}
}
