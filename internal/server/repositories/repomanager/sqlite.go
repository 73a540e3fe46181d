package repomanager

import (
	"context"
	"database/sql"

	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/server/repositories/accidents"
	"github.com/siatlite/casedesk/internal/server/repositories/authtokens"
	"github.com/siatlite/casedesk/internal/server/repositories/users"
)

// SQLiteRepositoryManager vends SQLite-backed repositories for single-node
// deployments and tests.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Dialect() dbx.Dialect { return dbx.DialectSQLite }

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) AuthTokens(db dbx.DBTX) authtokens.Repository {
	return authtokens.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Accidents(db dbx.DBTX) accidents.Repository {
	return accidents.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, dbx.DialectSQLite)
}
