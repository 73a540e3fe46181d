package config

import (
	"flag"
	"io"
	"time"

	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/flagx"
)

var serverFlags = []string{"-a", "-b", "-d", "-s", "-t", "-u", "-n", "-r", "-l", "-strict-login"}

// parseFlags overlays the flags it owns from args.
//
//	-a string   gRPC bind address
//	-b string   database driver: postgres or sqlite
//	-d string   database DSN
//	-s string   JWT HMAC secret
//	-t int      access token validity, minutes
//	-u string   public base URL used in mailed links
//	-n string   notify provider: log, smtp or sendgrid
//	-r string   redis address for throttle counters
//	-l string   log level
//	-strict-login  report inactive accounts as invalid credentials
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("casedesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	driver := fs.String("b", string(config.DatabaseDriver), "database driver")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTTL := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.NotifyProvider, "n", config.NotifyProvider, "notify provider")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.StrictLoginErrors, "strict-login", config.StrictLoginErrors, "strict login errors")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.DatabaseDriver = dbx.Dialect(*driver)
	config.AccessTokenValidityDuration = time.Duration(*accessTTL) * time.Minute
	return nil
}
