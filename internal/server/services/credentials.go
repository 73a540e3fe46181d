// Package services holds the server-side business logic: the credential
// store, the token ledger, the case-number allocator and the identity flows
// built on top of them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/siatlite/casedesk/internal/common"
	"github.com/siatlite/casedesk/internal/cryptox"
	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/server/models"
	"github.com/siatlite/casedesk/internal/server/repositories/repomanager"
)

// MinPasswordLength is counted in characters; the upper bound is bcrypt's
// byte limit.
const MinPasswordLength = 8

// NewUser is the input of CreateUser.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	RoleID    *int64
}

// CredentialStore owns user rows and password hashes.
type CredentialStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	bcryptCost  int
	now         func() time.Time
}

func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, bcryptCost int) *CredentialStore {
	return &CredentialStore{db: db, repomanager: m, bcryptCost: bcryptCost, now: utcNow}
}

// CreateUser stores a pending (inactive) user and returns its id.
func (s *CredentialStore) CreateUser(ctx context.Context, u NewUser) (int64, error) {
	user, err := s.prepareUser(u)
	if err != nil {
		return 0, err
	}
	return s.insertUser(ctx, s.db, user)
}

// prepareUser validates u and hashes its password. It is kept apart from the
// insert so the slow hash never runs inside a transaction.
func (s *CredentialStore) prepareUser(u NewUser) (*models.User, error) {
	email := common.NormalizeEmail(u.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(u.Password); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(u.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &models.User{
		FirstName:    strings.TrimSpace(u.FirstName),
		LastName:     strings.TrimSpace(u.LastName),
		Email:        email,
		PasswordHash: hash,
		Active:       false,
		RoleID:       u.RoleID,
		CreatedAt:    s.now(),
	}, nil
}

func (s *CredentialStore) insertUser(ctx context.Context, q dbx.DBTX, user *models.User) (int64, error) {
	created, err := s.repomanager.Users(q).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return 0, common.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return created.ID, nil
}

// VerifyCredentials returns the user when password matches. Unknown email and
// wrong password are the same error; a correct password on a pending account
// yields common.ErrAccountNotActivated.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, common.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.BurnCompare(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, common.ErrAccountNotActivated
	}
	return user, nil
}

// Activate marks the account active. Activating an active account is a no-op.
func (s *CredentialStore) Activate(ctx context.Context, email string) error {
	return s.activate(ctx, s.db, email)
}

func (s *CredentialStore) activate(ctx context.Context, q dbx.DBTX, email string) error {
	if err := s.repomanager.Users(q).Activate(ctx, common.NormalizeEmail(email), s.now()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("activate user: %w", err)
	}
	return nil
}

// SetPassword replaces the password hash. Callers are responsible for
// proving the right to do so.
func (s *CredentialStore) SetPassword(ctx context.Context, email, newPassword string) error {
	hash, err := s.hashNewPassword(newPassword)
	if err != nil {
		return err
	}
	return s.storeHash(ctx, s.db, email, hash)
}

func (s *CredentialStore) hashNewPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := cryptox.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *CredentialStore) storeHash(ctx context.Context, q dbx.DBTX, email, hash string) error {
	if err := s.repomanager.Users(q).UpdatePassword(ctx, common.NormalizeEmail(email), hash, s.now()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Exists reports whether an account is registered under email.
func (s *CredentialStore) Exists(ctx context.Context, email string) (bool, error) {
	ok, err := s.repomanager.Users(s.db).ExistsByEmail(ctx, common.NormalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return ok, nil
}

func (s *CredentialStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByEmail(ctx, common.NormalizeEmail(email))
}

func (s *CredentialStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// ValidatePassword enforces the password policy.
func ValidatePassword(p string) error {
	if utf8.RuneCountInString(p) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}
	if len(p) > cryptox.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrorValidation, cryptox.MaxPasswordBytes)
	}
	return nil
}

// ValidateEmail accepts a bare address with a non-empty local part and domain.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return nil
}

func utcNow() time.Time { return time.Now().UTC() }
