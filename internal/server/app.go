// Package server wires storage, mail delivery, throttling and the identity
// and case services behind the gRPC endpoint, and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/filex"
	"github.com/siatlite/casedesk/internal/logging"
	"github.com/siatlite/casedesk/internal/server/config"
	"github.com/siatlite/casedesk/internal/server/notify"
	"github.com/siatlite/casedesk/internal/server/repositories/repomanager"
	"github.com/siatlite/casedesk/internal/server/services"
	"github.com/siatlite/casedesk/internal/server/throttle"

	gs "github.com/siatlite/casedesk/internal/server/grpc"
)

const throttleKeyPrefix = "casedesk:throttle:"

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	identity *services.IdentityService
	cases    *services.CaseAllocator
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	dsn, err := databaseDSN(c)
	if err != nil {
		return nil, err
	}
	db, err := dbx.Open(ctx, c.DatabaseDriver, dsn, dbx.DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}
	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	m, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return err
	}
	if err := m.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	gateway, err := notify.New(notify.Config{
		Provider:       c.NotifyProvider,
		From:           c.MailFrom,
		FromName:       "Accident Records",
		SMTPHost:       c.SMTPHost,
		SMTPPort:       c.SMTPPort,
		SMTPUsername:   c.SMTPUsername,
		SMTPPassword:   c.SMTPPassword,
		SendGridAPIKey: c.SendGridAPIKey,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("notify init error: %w", err)
	}

	limiter, err := app.newLimiter(ctx)
	if err != nil {
		return err
	}

	creds := services.NewCredentialStore(app.db, m, c.BcryptCost)
	tokens := services.NewTokenLedger(app.db, m)
	app.identity = services.NewIdentityService(app.db, creds, tokens, gateway, limiter, services.IdentityConfigFrom(c), app.logger)
	app.cases = services.NewCaseAllocator(app.db, m, app.logger)
	return nil
}

// newLimiter shares counters through Redis when configured, otherwise keeps
// them in process.
func (app *App) newLimiter(ctx context.Context) (throttle.Limiter, error) {
	c := app.config
	if c.RedisAddr == "" {
		return throttle.NewMemoryLimiter(c.ThrottleLimit, c.ThrottleWindow), nil
	}
	client, err := throttle.NewRedisClient(ctx, c.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.redis = client
	return throttle.NewRedisLimiter(client, throttleKeyPrefix, c.ThrottleLimit, c.ThrottleWindow), nil
}

// databaseDSN turns a bare SQLite path into a DSN with the pragmas the
// services rely on, creating its directory on the way.
func databaseDSN(c *config.Config) (string, error) {
	if c.DatabaseDriver != dbx.DialectSQLite {
		return c.DatabaseDSN, nil
	}
	if strings.HasPrefix(c.DatabaseDSN, "file:") || c.DatabaseDSN == ":memory:" {
		return c.DatabaseDSN, nil
	}
	if _, err := filex.EnsureParentDir(c.DatabaseDSN); err != nil {
		return "", fmt.Errorf("sqlite path: %w", err)
	}
	return dbx.SQLiteDSN(c.DatabaseDSN), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.identity, app.cases, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runTokenPurger deletes inert tokens every TokenPurgeInterval until ctx ends.
func (app *App) runTokenPurger(ctx context.Context) {
	if app.config.TokenPurgeInterval <= 0 {
		return
	}
	ticker := time.NewTicker(app.config.TokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.purgeTokens(ctx)
		}
	}
}

func (app *App) purgeTokens(ctx context.Context) {
	n, err := app.identity.PurgeInertTokens(ctx, app.config.TokenRetention)
	if err != nil {
		app.logger.Warn(ctx, "token purge failed", "error", err)
		return
	}
	if n > 0 {
		app.logger.Info(ctx, "inert tokens purged", "count", n)
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver, "notify", app.config.NotifyProvider)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runTokenPurger(ctx)
	}()

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
