package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siatlite/casedesk/internal/common"
	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/logging"
	"github.com/siatlite/casedesk/internal/server/casenumber"
	"github.com/siatlite/casedesk/internal/server/models"
	"github.com/siatlite/casedesk/internal/server/repositories/repomanager"
)

// DefaultAllocationAttempts bounds the retries after a case-number collision.
const DefaultAllocationAttempts = 3

// sequenceError marks a failure of the sequencing step itself, as opposed to
// the insert that follows it.
type sequenceError struct{ err error }

func (e *sequenceError) Error() string { return "allocate case number: " + e.err.Error() }
func (e *sequenceError) Unwrap() error { return e.err }

// CaseAllocator assigns ACC-<year>-<seq> case numbers and inserts accidents.
type CaseAllocator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
	attempts    int
}

func NewCaseAllocator(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *CaseAllocator {
	return &CaseAllocator{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "case_allocator"),
		now:         utcNow,
		attempts:    DefaultAllocationAttempts,
	}
}

// NextCaseNumber advances the counter of year inside tx and returns the
// formatted number. The counter never falls below the highest well-formed
// number already stored for the year.
func (a *CaseAllocator) NextCaseNumber(ctx context.Context, tx dbx.DBTX, year int) (string, error) {
	return a.nextCaseNumber(ctx, tx, year, false)
}

// nextCaseNumber bumps an existing counter directly. The stored numbers are
// only scanned for a floor when the counter is missing or reseed is set.
func (a *CaseAllocator) nextCaseNumber(ctx context.Context, tx dbx.DBTX, year int, reseed bool) (string, error) {
	repo := a.repomanager.Accidents(tx)

	if !reseed {
		seq, err := repo.AdvanceSequence(ctx, year)
		if err == nil {
			return casenumber.Format(year, seq), nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return "", err
		}
	}

	floor, err := repo.MaxSequence(ctx, year)
	if err != nil {
		return "", err
	}
	seq, err := repo.NextSequence(ctx, year, floor)
	if err != nil {
		return "", err
	}
	return casenumber.Format(year, seq), nil
}

// CreateAccident allocates a case number for acc and stores it. The year is
// taken from OccurredAt (now when unset). A collision is retried a bounded
// number of times, re-reading the stored numbers each time, then reported as
// common.ErrAllocationConflict. When the sequencing step fails outright the
// accident is stored under a fallback number.
func (a *CaseAllocator) CreateAccident(ctx context.Context, acc *models.Accident) (*models.Accident, error) {
	if acc == nil {
		return nil, fmt.Errorf("%w: accident is required", common.ErrorValidation)
	}

	rec := *acc
	rec.CaseNumber = ""
	rec.Location = strings.TrimSpace(rec.Location)
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = a.now()
	}
	rec.OccurredAt = rec.OccurredAt.UTC()
	year := rec.OccurredAt.Year()
	if year < casenumber.MinYear || year > casenumber.MaxYear {
		return nil, fmt.Errorf("%w: occurred_at year %d is out of range", common.ErrorValidation, year)
	}

	for attempt := 1; attempt <= a.attempts; attempt++ {
		out, err := a.allocateAndInsert(ctx, rec, year, attempt > 1)
		if err == nil {
			return out, nil
		}

		var seqErr *sequenceError
		switch {
		case errors.As(err, &seqErr):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return a.insertFallback(ctx, rec, err)
		case errors.Is(err, common.ErrorAlreadyExists):
			a.logger.Warn(ctx, "case number collision, retrying", "year", year, "attempt", attempt)
			continue
		case errors.Is(err, common.ErrorValidation):
			return nil, err
		default:
			return nil, fmt.Errorf("create accident: %w", err)
		}
	}

	a.logger.Error(ctx, "case number allocation gave up", "year", year, "attempts", a.attempts)
	return nil, common.ErrAllocationConflict
}

func (a *CaseAllocator) allocateAndInsert(ctx context.Context, rec models.Accident, year int, reseed bool) (*models.Accident, error) {
	var out *models.Accident
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cn, err := a.nextCaseNumber(ctx, tx, year, reseed)
		if err != nil {
			return &sequenceError{err: err}
		}
		rec.CaseNumber = cn
		rec.CreatedAt = a.now()
		out, err = a.repomanager.Accidents(tx).Insert(ctx, &rec)
		return err
	})
	return out, err
}

func (a *CaseAllocator) insertFallback(ctx context.Context, rec models.Accident, cause error) (*models.Accident, error) {
	rec.CaseNumber = casenumber.Fallback(a.now())
	rec.CreatedAt = a.now()
	a.logger.Error(ctx, "case number sequencing failed, using fallback number",
		"error", cause, "case_number", rec.CaseNumber)

	out, err := a.repomanager.Accidents(a.db).Insert(ctx, &rec)
	if errors.Is(err, common.ErrorValidation) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("create accident with fallback number: %w", errors.Join(err, cause))
	}
	return out, nil
}

// GetByCaseNumber loads the accident registered under caseNumber.
func (a *CaseAllocator) GetByCaseNumber(ctx context.Context, caseNumber string) (*models.Accident, error) {
	acc, err := a.repomanager.Accidents(a.db).GetByCaseNumber(ctx, strings.TrimSpace(caseNumber))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("load accident: %w", err)
	}
	return acc, nil
}
