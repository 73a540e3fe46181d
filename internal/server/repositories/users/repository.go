// Package users persists operator accounts.
package users

import (
	"context"
	"time"

	"github.com/siatlite/casedesk/internal/server/models"
)

// Repository is the storage contract for users. Implementations return
// common.ErrorNotFound for missing rows and common.ErrorAlreadyExists when the
// email is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Activate(ctx context.Context, email string, now time.Time) error
	UpdatePassword(ctx context.Context, email, passwordHash string, now time.Time) error
}
