package cli

import (
	"errors"

	"github.com/siatlite/casedesk/internal/client/client"
	"github.com/siatlite/casedesk/internal/common"
)

var errUsage = errors.New("usage")

// describe turns an error into a message for the person at the keyboard.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, client.ErrNotLoggedIn):
		return "log in first"
	case errors.Is(err, common.ErrTokenExpired):
		return "session expired, log in again"
	case errors.Is(err, common.ErrDuplicateEmail):
		return "an account with this e-mail already exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "wrong e-mail or password"
	case errors.Is(err, common.ErrAccountNotActivated):
		return "account not confirmed yet; follow the link in your mail or run 'resend'"
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		return "the link is invalid, already used or expired"
	case errors.Is(err, common.ErrTooManyRequests):
		return "too many attempts, wait a few minutes"
	case errors.Is(err, common.ErrAllocationConflict):
		return "could not assign a case number, try again"
	case errors.Is(err, common.ErrorNotFound):
		return "not found"
	}
	return err.Error()
}
