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

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) DeleteUnused(ctx context.Context, email string, kind models.TokenKind) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE email = $1 AND kind = $2 AND used = FALSE`

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

func (r *PostgresRepository) Upsert(ctx context.Context, t *models.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (token_hash, email, kind, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		ON CONFLICT (email, kind) WHERE used = FALSE
		DO UPDATE SET token_hash = EXCLUDED.token_hash,
		              expires_at = EXCLUDED.expires_at,
		              created_at = EXCLUDED.created_at
	`
	_, err := r.db.ExecContext(ctx, query, t.TokenHash, t.Email, string(t.Kind), t.ExpiresAt, t.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, tokenHash string, kind models.TokenKind, now time.Time) (string, error) {
	query := `
		UPDATE auth_tokens
		SET used = TRUE, used_at = $3
		WHERE token_hash = $1 AND kind = $2 AND used = FALSE AND expires_at > $3
		RETURNING email
	`
	var email string
	if err := r.db.QueryRowContext(ctx, query, tokenHash, string(kind), now).Scan(&email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return email, nil
}

func (r *PostgresRepository) Get(ctx context.Context, tokenHash string) (*models.AuthToken, error) {
	query := `
		SELECT token_hash, email, kind, expires_at, used, used_at, created_at
		FROM auth_tokens
		WHERE token_hash = $1
	`
	t := &models.AuthToken{}
	var (
		kind   string
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&t.TokenHash, &t.Email, &kind, &t.ExpiresAt, &t.Used, &usedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Kind = models.TokenKind(kind)
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return t, nil
}

func (r *PostgresRepository) PurgeInert(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE (used = TRUE AND used_at < $1) OR expires_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
