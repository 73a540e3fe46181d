package cli

import (
	"context"
	"errors"
	"time"

	"github.com/siatlite/casedesk/internal/client/client"
	"github.com/siatlite/casedesk/internal/common"
)

// getSimpleText, getPassword and getMultiline are test seams.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

var errPasswordMismatch = errors.New("passwords do not match")

// argOrPrompt returns args[0] when present, otherwise asks for it.
func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// newPassword asks twice and returns the password when both entries match.
func (a *App) newPassword(prompt string) ([]byte, error) {
	first, err := getPassword(a.out, prompt)
	if err != nil {
		return nil, err
	}
	second, err := getPassword(a.out, "Repeat "+prompt)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if string(first) != string(second) {
		common.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

func (a *App) register(ctx context.Context, _ []string) error {
	first, err := getSimpleText(a.reader, "First name", a.out)
	if err != nil {
		return err
	}
	last, err := getSimpleText(a.reader, "Last name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "E-mail", a.out)
	if err != nil {
		return err
	}
	password, err := a.newPassword("Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	err = a.api.Register(ctx, client.Registration{FirstName: first, LastName: last, Email: email, Password: password})
	if err != nil {
		return err
	}
	a.printf("Account created. Check %s for the confirmation link.\n", email)
	return nil
}

func (a *App) confirm(ctx context.Context, args []string) error {
	token, err := a.argOrPrompt(args, "Confirmation token")
	if err != nil {
		return err
	}
	if err := a.api.Confirm(ctx, token); err != nil {
		return err
	}
	a.printf("Account confirmed. You can log in now.\n")
	return nil
}

func (a *App) resend(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, "E-mail")
	if err != nil {
		return err
	}
	if err := a.api.ResendConfirmation(ctx, email); err != nil {
		return err
	}
	a.printf("If the account is still pending, a new link is on its way.\n")
	return nil
}

func (a *App) login(ctx context.Context, _ []string) error {
	email, err := getSimpleText(a.reader, "E-mail", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.session = sess
	a.printf("Welcome, %s. Session valid until %s.\n", displayName(sess), sess.ExpiresAt.In(a.loc).Format(occurredAtLayout))
	return nil
}

func displayName(s *client.Session) string {
	if s.FullName != "" {
		return s.FullName
	}
	return s.Email
}

func (a *App) logout(context.Context, []string) error {
	a.api.Logout()
	a.session = nil
	a.printf("Logged out.\n")
	return nil
}

func (a *App) changePassword(ctx context.Context, _ []string) error {
	if !a.api.LoggedIn() {
		return client.ErrNotLoggedIn
	}
	old, err := getPassword(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(old)

	password, err := a.newPassword("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.ChangePassword(ctx, old, password); err != nil {
		return err
	}
	a.printf("Password changed.\n")
	return nil
}

func (a *App) requestReset(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, "E-mail")
	if err != nil {
		return err
	}
	if err := a.api.RequestReset(ctx, email); err != nil {
		return err
	}
	a.printf("A reset link was sent to %s.\n", email)
	return nil
}

func (a *App) applyReset(ctx context.Context, args []string) error {
	token, err := a.argOrPrompt(args, "Reset token")
	if err != nil {
		return err
	}
	password, err := a.newPassword("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.ApplyReset(ctx, token, password); err != nil {
		return err
	}
	a.printf("Password updated. You can log in now.\n")
	return nil
}

func (a *App) newAccident(ctx context.Context, _ []string) error {
	if !a.api.LoggedIn() {
		return client.ErrNotLoggedIn
	}
	raw, err := getSimpleText(a.reader, "Occurred at ("+occurredAtLayout+", empty for now)", a.out)
	if err != nil {
		return err
	}
	occurredAt, err := ParseOccurredAt(raw, a.loc)
	if err != nil {
		return err
	}
	location, err := getSimpleText(a.reader, "Location", a.out)
	if err != nil {
		return err
	}
	description, err := getMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}

	acc, err := a.api.CreateAccident(ctx, client.NewAccident{OccurredAt: occurredAt, Location: location, Description: description})
	if err != nil {
		return err
	}
	a.printf("Registered under case number %s\n", acc.CaseNumber)
	return nil
}

func (a *App) getAccident(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	acc, err := a.api.GetAccident(ctx, args[0])
	if err != nil {
		return err
	}
	a.printAccident(acc)
	return nil
}

func (a *App) printAccident(acc *client.Accident) {
	a.printf("Case number: %s\n", acc.CaseNumber)
	a.printf("Occurred at: %s\n", acc.OccurredAt.In(a.loc).Format(occurredAtLayout))
	a.printf("Location:    %s\n", acc.Location)
	if acc.Description != "" {
		a.printf("Description:\n%s\n", acc.Description)
	}
	a.printf("Registered:  %s\n", acc.CreatedAt.In(a.loc).Format(time.RFC3339))
}

func (a *App) ping(ctx context.Context, _ []string) error {
	start := time.Now()
	if err := a.api.Ping(ctx); err != nil {
		return err
	}
	a.printf("OK (%s)\n", time.Since(start).Round(time.Millisecond))
	return nil
}
