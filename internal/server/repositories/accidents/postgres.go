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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) MaxSequence(ctx context.Context, year int) (int, error) {
	query := `SELECT case_number FROM accidents WHERE case_number LIKE $1`

	rows, err := r.db.QueryContext(ctx, query, casenumber.LikePattern(year))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return maxParsedSequence(rows, year)
}

func (r *PostgresRepository) AdvanceSequence(ctx context.Context, year int) (int, error) {
	query := `UPDATE case_sequences SET last_seq = last_seq + 1 WHERE year = $1 RETURNING last_seq`

	var seq int
	if err := r.db.QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return seq, nil
}

func (r *PostgresRepository) NextSequence(ctx context.Context, year, floor int) (int, error) {
	query := `
		INSERT INTO case_sequences (year, last_seq)
		VALUES ($1, $2)
		ON CONFLICT (year)
		DO UPDATE SET last_seq = GREATEST(case_sequences.last_seq + 1, EXCLUDED.last_seq)
		RETURNING last_seq
	`
	var seq int
	if err := r.db.QueryRowContext(ctx, query, year, floor+1).Scan(&seq); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return seq, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Accident) (*models.Accident, error) {
	query := `
		INSERT INTO accidents (case_number, occurred_at, location, description, registered_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, query, a.CaseNumber, a.OccurredAt, a.Location, a.Description, a.RegisteredBy, a.CreatedAt).Scan(&a.ID)
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

func (r *PostgresRepository) GetByCaseNumber(ctx context.Context, caseNumber string) (*models.Accident, error) {
	query := `
		SELECT id, case_number, occurred_at, location, description, registered_by, created_at
		FROM accidents
		WHERE case_number = $1
	`
	a := &models.Accident{}
	var by sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, caseNumber).Scan(&a.ID, &a.CaseNumber, &a.OccurredAt, &a.Location, &a.Description, &by, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if by.Valid {
		a.RegisteredBy = &by.Int64
	}
	return a, nil
}
