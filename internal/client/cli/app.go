// Package cli is the interactive and one-shot command line of casedesk.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/siatlite/casedesk/internal/client/client"
	"github.com/siatlite/casedesk/internal/client/config"
)

// API is the server surface the commands use. *client.GRPCClient implements it.
type API interface {
	Register(ctx context.Context, r client.Registration) error
	Confirm(ctx context.Context, token string) error
	ResendConfirmation(ctx context.Context, email string) error
	Login(ctx context.Context, email string, password []byte) (*client.Session, error)
	Logout()
	LoggedIn() bool
	RequestReset(ctx context.Context, email string) error
	ApplyReset(ctx context.Context, token string, newPassword []byte) error
	ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error
	CreateAccident(ctx context.Context, a client.NewAccident) (*client.Accident, error)
	GetAccident(ctx context.Context, caseNumber string) (*client.Accident, error)
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	config  *config.Config
	api     API
	reader  *bufio.Reader
	out     io.Writer
	session *client.Session
	loc     *time.Location
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return newApp(c, api, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api API, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: api, reader: bufio.NewReader(in), out: out, loc: time.Local}
}

// Run executes args as a single command, or starts the interactive shell
// when args is empty.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.api.Close()

	if len(args) > 0 {
		err := a.dispatch(ctx, args[0], args[1:])
		if err != nil {
			a.printf("error: %s\n", describe(err))
		}
		return err
	}

	a.runREPL(ctx)
	return nil
}
