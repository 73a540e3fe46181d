package accidents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siatlite/casedesk/internal/common"
	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/server/casenumber"
	"github.com/siatlite/casedesk/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) MaxSequence(ctx context.Context, year int) (int, error) {
	query := `SELECT case_number FROM accidents WHERE case_number LIKE ?`

	rows, err := r.db.QueryContext(ctx, query, casenumber.LikePattern(year))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return maxParsedSequence(rows, year)
}

func (r *SQLiteRepository) AdvanceSequence(ctx context.Context, year int) (int, error) {
	query := `UPDATE case_sequences SET last_seq = last_seq + 1 WHERE year = ? RETURNING last_seq`

	var seq int
	if err := r.db.QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) NextSequence(ctx context.Context, year, floor int) (int, error) {
	query := `
		INSERT INTO case_sequences (year, last_seq)
		VALUES (?, ?)
		ON CONFLICT (year)
		DO UPDATE SET last_seq = MAX(case_sequences.last_seq + 1, excluded.last_seq)
		RETURNING last_seq
	`
	var seq int
	if err := r.db.QueryRowContext(ctx, query, year, floor+1).Scan(&seq); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, a *models.Accident) (*models.Accident, error) {
	query := `
		INSERT INTO accidents (case_number, occurred_at, location, description, registered_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, query, a.CaseNumber, dbx.SQLiteTime(a.OccurredAt), a.Location, a.Description,
		a.RegisteredBy, dbx.SQLiteTime(a.CreatedAt)).Scan(&a.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: registered_by refers to an unknown user", common.ErrorValidation)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetByCaseNumber(ctx context.Context, caseNumber string) (*models.Accident, error) {
	query := `
		SELECT id, case_number, occurred_at, location, description, registered_by, created_at
		FROM accidents
		WHERE case_number = ?
	`
	a := &models.Accident{}
	var (
		by                sql.NullInt64
		occurred, created string
	)

	err := r.db.QueryRowContext(ctx, query, caseNumber).Scan(&a.ID, &a.CaseNumber, &occurred, &a.Location, &a.Description, &by, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if by.Valid {
		a.RegisteredBy = &by.Int64
	}
	if a.OccurredAt, err = dbx.ParseSQLiteTime(occurred); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if a.CreatedAt, err = dbx.ParseSQLiteTime(created); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}
