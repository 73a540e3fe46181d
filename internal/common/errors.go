// Package common defines shared constants and sentinel errors used across
// the casedesk server and CLI. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed access token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Identity errors.
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountNotActivated   = errors.New("account not activated")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrTooManyRequests       = errors.New("too many requests")

	// ErrDeliveryFailure is never returned to callers of the identity flows;
	// it only wraps gateway errors in logs.
	ErrDeliveryFailure = errors.New("notification delivery failed")

	// Case-number errors.
	ErrAllocationConflict = errors.New("case number allocation conflict")
)
