package authtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siatlite/casedesk/internal/common"
	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/server/models"
)

// SQLiteRepository implements Repository over dbx.DBTX. Timestamps are
// stored as fixed-width UTC text so they compare correctly as strings.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) DeleteUnused(ctx context.Context, email string, kind models.TokenKind) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE email = ? AND kind = ? AND used = 0`

	res, err := r.db.ExecContext(ctx, query, email, string(kind))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, t *models.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (token_hash, email, kind, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (email, kind) WHERE used = 0
		DO UPDATE SET token_hash = excluded.token_hash,
		              expires_at = excluded.expires_at,
		              created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query, t.TokenHash, t.Email, string(t.Kind),
		dbx.SQLiteTime(t.ExpiresAt), dbx.SQLiteTime(t.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Consume(ctx context.Context, tokenHash string, kind models.TokenKind, now time.Time) (string, error) {
	query := `
		UPDATE auth_tokens
		SET used = 1, used_at = ?
		WHERE token_hash = ? AND kind = ? AND used = 0 AND expires_at > ?
		RETURNING email
	`
	ts := dbx.SQLiteTime(now)

	var email string
	if err := r.db.QueryRowContext(ctx, query, ts, tokenHash, string(kind), ts).Scan(&email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return email, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, tokenHash string) (*models.AuthToken, error) {
	query := `
		SELECT token_hash, email, kind, expires_at, used, used_at, created_at
		FROM auth_tokens
		WHERE token_hash = ?
	`
	t := &models.AuthToken{}
	var (
		kind, expires, created string
		usedAt                 sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&t.TokenHash, &t.Email, &kind, &expires, &t.Used, &usedAt, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	t.Kind = models.TokenKind(kind)
	if t.ExpiresAt, err = dbx.ParseSQLiteTime(expires); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if t.CreatedAt, err = dbx.ParseSQLiteTime(created); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if usedAt.Valid {
		ts, err := dbx.ParseSQLiteTime(usedAt.String)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		t.UsedAt = &ts
	}
	return t, nil
}

func (r *SQLiteRepository) PurgeInert(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE (used = 1 AND used_at < ?) OR expires_at < ?`

	ts := dbx.SQLiteTime(cutoff)
	res, err := r.db.ExecContext(ctx, query, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
