package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type command struct {
	usage string
	help  string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":      {"register", "create an account", (*App).register},
	"confirm":       {"confirm [token]", "activate an account with the mailed token", (*App).confirm},
	"resend":        {"resend [email]", "mail a new confirmation link", (*App).resend},
	"login":         {"login", "start a session", (*App).login},
	"logout":        {"logout", "end the session", (*App).logout},
	"passwd":        {"passwd", "change your password", (*App).changePassword},
	"reset-request": {"reset-request [email]", "mail a password reset link", (*App).requestReset},
	"reset-apply":   {"reset-apply [token]", "choose a new password with the mailed token", (*App).applyReset},
	"accident-new":  {"accident-new", "register an accident and get its case number", (*App).newAccident},
	"accident-get":  {"accident-get <case-number>", "show an accident", (*App).getAccident},
	"ping":          {"ping", "check the server", (*App).ping},
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) status() string {
	if a.session == nil || !a.api.LoggedIn() {
		return ""
	}
	return "(" + a.session.Email + ") "
}

func (a *App) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, type 'help'", name)
	}
	err := cmd.run(a, ctx, args)
	if err == errUsage {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return err
}

func (a *App) printHelp() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.printf("  %-28s %s\n", commands[name].usage, commands[name].help)
	}
	a.printf("  %-28s %s\n", "exit | quit", "leave")
}

// runREPL reads commands until EOF or exit. Command errors are printed and
// the loop continues.
func (a *App) runREPL(ctx context.Context) {
	a.printf("casedesk CLI (type 'help' for commands)\n")
	for {
		a.printf("casedesk %s> ", a.status())
		line, err := a.reader.ReadString('\n')
		parts := strings.Fields(line)

		if len(parts) > 0 {
			switch parts[0] {
			case "exit", "quit":
				a.printf("Bye!\n")
				return
			case "help":
				a.printHelp()
			default:
				if cerr := a.dispatch(ctx, parts[0], parts[1:]); cerr != nil {
					a.printf("error: %s\n", describe(cerr))
				}
			}
		}

		if err != nil {
			return
		}
	}
}
