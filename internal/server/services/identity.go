package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/siatlite/casedesk/internal/common"
	"github.com/siatlite/casedesk/internal/cryptox"
	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/logging"
	"github.com/siatlite/casedesk/internal/server/auth"
	"github.com/siatlite/casedesk/internal/server/config"
	"github.com/siatlite/casedesk/internal/server/models"
	"github.com/siatlite/casedesk/internal/server/notify"
	"github.com/siatlite/casedesk/internal/server/throttle"
)

const (
	DefaultConfirmTTL = 24 * time.Hour
	DefaultResetTTL   = 30 * time.Minute

	confirmPath = "/confirm"
	resetPath   = "/reset"
)

// IdentityConfig tunes the identity flows.
type IdentityConfig struct {
	ConfirmTTL        time.Duration
	ResetTTL          time.Duration
	AccessTokenTTL    time.Duration
	JWTSecret         []byte
	PublicBaseURL     string
	StrictLoginErrors bool
}

// IdentityConfigFrom extracts the identity settings from the server config.
func IdentityConfigFrom(c *config.Config) IdentityConfig {
	return IdentityConfig{
		ConfirmTTL:        c.ConfirmTokenTTL,
		ResetTTL:          c.ResetTokenTTL,
		AccessTokenTTL:    c.AccessTokenValidityDuration,
		JWTSecret:         []byte(c.SecretKey),
		PublicBaseURL:     c.PublicBaseURL,
		StrictLoginErrors: c.StrictLoginErrors,
	}
}

// RegisterInput is the self-registration form.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *models.User
}

// IdentityService runs the account flows: registration, confirmation,
// login and password reset. It is the only caller of the mail gateway.
type IdentityService struct {
	db      *sql.DB
	creds   *CredentialStore
	tokens  *TokenLedger
	gateway notify.Gateway
	limiter throttle.Limiter
	cfg     IdentityConfig
	logger  logging.Logger
}

// NewIdentityService wires the flows. A nil limiter disables throttling.
func NewIdentityService(db *sql.DB, creds *CredentialStore, tokens *TokenLedger, gateway notify.Gateway,
	limiter throttle.Limiter, cfg IdentityConfig, logger logging.Logger) *IdentityService {
	if cfg.ConfirmTTL <= 0 {
		cfg.ConfirmTTL = DefaultConfirmTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	return &IdentityService{
		db:      db,
		creds:   creds,
		tokens:  tokens,
		gateway: gateway,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With("module", "identity"),
	}
}

// Register creates a pending account and mails a confirmation link. The
// account and its token are written atomically; a failed delivery is logged
// and does not fail the registration.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) error {
	email := common.NormalizeEmail(in.Email)
	if err := s.throttle(ctx, "register", email); err != nil {
		return err
	}

	user, err := s.creds.prepareUser(NewUser{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     email,
		Password:  in.Password,
	})
	if err != nil {
		return err
	}

	var raw string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.creds.insertUser(ctx, tx, user); err != nil {
			return err
		}
		raw, err = s.tokens.issue(ctx, tx, email, models.TokenKindConfirm, s.cfg.ConfirmTTL)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "user registered", "email", email)
	s.sendConfirmation(ctx, user, raw)
	return nil
}

// Confirm spends a confirmation token and activates its account.
func (s *IdentityService) Confirm(ctx context.Context, token string) error {
	var email string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if email, err = s.tokens.consume(ctx, tx, token, models.TokenKindConfirm); err != nil {
			return err
		}
		return s.creds.activate(ctx, tx, email)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// token outlived its account
			return common.ErrInvalidOrExpiredToken
		}
		return err
	}

	s.logger.Info(ctx, "account confirmed", "email", email)
	return nil
}

// ResendConfirmation issues a fresh confirmation link for a pending account,
// invalidating the previous one. Active accounts are left alone.
func (s *IdentityService) ResendConfirmation(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)
	if err := s.throttle(ctx, "resend", email); err != nil {
		return err
	}

	user, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.Active {
		s.logger.Info(ctx, "confirmation resend skipped, account already active", "email", email)
		return nil
	}

	raw, err := s.tokens.Issue(ctx, email, models.TokenKindConfirm, s.cfg.ConfirmTTL)
	if err != nil {
		return err
	}
	s.sendConfirmation(ctx, user, raw)
	return nil
}

// Login checks credentials and returns a signed access token. Pending
// accounts get common.ErrAccountNotActivated unless strict login errors are
// configured, in which case they look like bad credentials.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.creds.VerifyCredentials(ctx, email, password)
	if err != nil {
		if s.cfg.StrictLoginErrors && errors.Is(err, common.ErrAccountNotActivated) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	token, err := auth.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &Session{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(s.cfg.AccessTokenTTL).UTC(),
		User:        user,
	}, nil
}

// RequestReset mails a reset link. Unknown emails yield common.ErrorNotFound.
func (s *IdentityService) RequestReset(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)
	if err := s.throttle(ctx, "reset", email); err != nil {
		return err
	}

	exists, err := s.creds.Exists(ctx, email)
	if err != nil {
		return err
	}
	if !exists {
		return common.ErrorNotFound
	}

	raw, err := s.tokens.Issue(ctx, email, models.TokenKindReset, s.cfg.ResetTTL)
	if err != nil {
		return err
	}

	msg, err := notify.ResetMessage(email, s.link(resetPath, raw), s.cfg.ResetTTL)
	if err != nil {
		s.logger.Error(ctx, "render reset mail", "error", err)
		return nil
	}
	s.deliver(ctx, msg)
	return nil
}

// ApplyReset spends a reset token and sets newPassword. The password is
// checked first so a weak password does not burn the token.
func (s *IdentityService) ApplyReset(ctx context.Context, token, newPassword string) error {
	hash, err := s.creds.hashNewPassword(newPassword)
	if err != nil {
		return err
	}

	var email string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if email, err = s.tokens.consume(ctx, tx, token, models.TokenKindReset); err != nil {
			return err
		}
		return s.creds.storeHash(ctx, tx, email, hash)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return err
	}

	s.logger.Info(ctx, "password reset applied", "email", email)
	return nil
}

// ChangePassword lets a logged-in user replace their password. Outstanding
// reset links are revoked.
func (s *IdentityService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.creds.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("load user: %w", err)
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, oldPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return common.ErrInvalidCredentials
	}

	hash, err := s.creds.hashNewPassword(newPassword)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.creds.storeHash(ctx, tx, user.Email, hash); err != nil {
			return err
		}
		return s.tokens.revoke(ctx, tx, user.Email, models.TokenKindReset)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// PurgeInertTokens removes tokens inert for longer than retention.
func (s *IdentityService) PurgeInertTokens(ctx context.Context, retention time.Duration) (int64, error) {
	return s.tokens.PurgeInert(ctx, retention)
}

func (s *IdentityService) sendConfirmation(ctx context.Context, user *models.User, raw string) {
	msg, err := notify.ConfirmationMessage(user.Email, user.FullName(), s.link(confirmPath, raw), s.cfg.ConfirmTTL)
	if err != nil {
		s.logger.Error(ctx, "render confirmation mail", "error", err)
		return
	}
	s.deliver(ctx, msg)
}

// deliver never fails the calling flow; the user can ask for a new link.
func (s *IdentityService) deliver(ctx context.Context, msg notify.Message) {
	if s.gateway == nil {
		s.logger.Warn(ctx, "no mail gateway configured", "to", msg.To, "subject", msg.Subject)
		return
	}
	if err := s.gateway.Send(ctx, msg); err != nil {
		s.logger.Warn(ctx, "mail not delivered",
			"to", msg.To, "subject", msg.Subject, "error", fmt.Errorf("%w: %w", common.ErrDeliveryFailure, err))
	}
}

// throttle counts an attempt of action for email. Limiter outages let the
// request through.
func (s *IdentityService) throttle(ctx context.Context, action, email string) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, action+":"+email)
	if err != nil {
		s.logger.Warn(ctx, "throttle unavailable", "action", action, "error", err)
		return nil
	}
	if !ok {
		s.logger.Warn(ctx, "throttled", "action", action, "email", email)
		return common.ErrTooManyRequests
	}
	return nil
}

func (s *IdentityService) link(path, token string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}
