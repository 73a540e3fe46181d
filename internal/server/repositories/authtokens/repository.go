// Package authtokens stores the single-use confirmation and reset tokens.
// Rows are keyed by the SHA-256 hash of the raw token.
package authtokens

import (
	"context"
	"time"

	"github.com/siatlite/casedesk/internal/server/models"
)

// Repository is the storage contract of the token ledger.
type Repository interface {
	// DeleteUnused removes every unused token of kind for email.
	DeleteUnused(ctx context.Context, email string, kind models.TokenKind) (int64, error)
	// Upsert inserts t, replacing a concurrently inserted live token of the
	// same (email, kind) so that at most one stays live.
	Upsert(ctx context.Context, t *models.AuthToken) error
	// Consume marks the token used if it is unused, of kind and unexpired at
	// now, returning its email. Otherwise common.ErrorNotFound.
	Consume(ctx context.Context, tokenHash string, kind models.TokenKind, now time.Time) (string, error)
	Get(ctx context.Context, tokenHash string) (*models.AuthToken, error)
	// PurgeInert deletes used or expired tokens that became inert before cutoff.
	PurgeInert(ctx context.Context, cutoff time.Time) (int64, error)
}
