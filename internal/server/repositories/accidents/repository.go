// Package accidents persists accident records and the per-year case-number
// counters.
package accidents

import (
	"context"

	"github.com/siatlite/casedesk/internal/server/models"
)

// Repository is the storage contract used by the case allocator.
type Repository interface {
	// MaxSequence returns the highest sequence among well-formed case numbers
	// of year already stored, or 0. Corrupt case numbers are ignored.
	MaxSequence(ctx context.Context, year int) (int, error)
	// AdvanceSequence increments an existing counter of year and returns the
	// new value. A year without a counter yields common.ErrorNotFound.
	AdvanceSequence(ctx context.Context, year int) (int, error)
	// NextSequence atomically advances the counter of year, creating it when
	// missing, and returns the new value, which is never below floor+1.
	NextSequence(ctx context.Context, year, floor int) (int, error)
	// Insert stores a. A taken case number yields common.ErrorAlreadyExists and
	// an unknown RegisteredBy user yields common.ErrorValidation.
	Insert(ctx context.Context, a *models.Accident) (*models.Accident, error)
	GetByCaseNumber(ctx context.Context, caseNumber string) (*models.Accident, error)
}
