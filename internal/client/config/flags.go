package config

import (
	"flag"
	"io"
	"time"

	"github.com/siatlite/casedesk/internal/flagx"
)

// ValueFlags are the CLI flags that consume the following argument.
var ValueFlags = []string{"-a", "-t", "-c", "-config"}

// parseFlags overlays the flags it owns from args.
//
//	-a string   address and port of the casedesk server
//	-t int      per-request timeout, seconds
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t"})

	fs := flag.NewFlagSet("casedesk-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
