package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siatlite/casedesk/internal/common"
	"github.com/siatlite/casedesk/internal/cryptox"
	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/server/models"
	"github.com/siatlite/casedesk/internal/server/repositories/repomanager"
)

// tokenBytes of randomness give a 43 character URL-safe token.
const tokenBytes = 32

// TokenLedger issues and consumes single-use, time-bounded tokens. Only the
// SHA-256 of a token is stored; the raw value exists in the mail link alone.
type TokenLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewTokenLedger(db *sql.DB, m repomanager.RepositoryManager) *TokenLedger {
	return &TokenLedger{db: db, repomanager: m, now: utcNow}
}

// Issue creates a token of kind for email valid for ttl. Any earlier unused
// token of the same kind for the same email stops being accepted.
func (l *TokenLedger) Issue(ctx context.Context, email string, kind models.TokenKind, ttl time.Duration) (string, error) {
	var raw string
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		raw, err = l.issue(ctx, tx, email, kind, ttl)
		return err
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// issue must run inside a transaction so the delete and the insert are atomic.
func (l *TokenLedger) issue(ctx context.Context, tx dbx.DBTX, email string, kind models.TokenKind, ttl time.Duration) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown token kind %q", common.ErrorValidation, kind)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: token ttl must be positive", common.ErrorValidation)
	}

	raw, err := common.MakeURLSafeToken(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	now := l.now()
	email = common.NormalizeEmail(email)
	repo := l.repomanager.AuthTokens(tx)

	if _, err := repo.DeleteUnused(ctx, email, kind); err != nil {
		return "", fmt.Errorf("supersede tokens: %w", err)
	}
	err = repo.Upsert(ctx, &models.AuthToken{
		TokenHash: cryptox.HashToken(raw),
		Email:     email,
		Kind:      kind,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return raw, nil
}

// Consume spends token and returns the email it was issued for. Unknown,
// used, expired or wrong-kind tokens all yield common.ErrInvalidOrExpiredToken.
func (l *TokenLedger) Consume(ctx context.Context, token string, kind models.TokenKind) (string, error) {
	return l.consume(ctx, l.db, token, kind)
}

func (l *TokenLedger) consume(ctx context.Context, q dbx.DBTX, token string, kind models.TokenKind) (string, error) {
	if token == "" || !kind.Valid() {
		return "", common.ErrInvalidOrExpiredToken
	}

	email, err := l.repomanager.AuthTokens(q).Consume(ctx, cryptox.HashToken(token), kind, l.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidOrExpiredToken
		}
		return "", fmt.Errorf("consume token: %w", err)
	}
	return email, nil
}

// revoke drops every unused token of kind for email.
func (l *TokenLedger) revoke(ctx context.Context, q dbx.DBTX, email string, kind models.TokenKind) error {
	if _, err := l.repomanager.AuthTokens(q).DeleteUnused(ctx, common.NormalizeEmail(email), kind); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// PurgeInert deletes tokens that have been used or expired for longer than
// retention. Correctness never depends on it running.
func (l *TokenLedger) PurgeInert(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := l.repomanager.AuthTokens(l.db).PurgeInert(ctx, l.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return n, nil
}
