package services

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/logging"
	"github.com/siatlite/casedesk/internal/server/notify"
	"github.com/siatlite/casedesk/internal/server/repositories/repomanager"
	"github.com/siatlite/casedesk/internal/server/throttle"
)

func testLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard, "error")
}

// openDB opens a migrated file-backed SQLite database. dbx.Open caps SQLite at
// one connection, so concurrent tests see their transactions serialized; they
// check the outcome under contention, not row-level locking.
func openDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	ctx := context.Background()

	dsn := dbx.SQLiteDSN(filepath.Join(t.TempDir(), "casedesk.db"))
	db, err := dbx.Open(ctx, dbx.DialectSQLite, dsn, dbx.DefaultPoolOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx, db))
	return db, m
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (g *fakeGateway) Send(_ context.Context, msg notify.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, msg)
	return nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

// lastToken extracts the token from the most recent link sent to "to".
func (g *fakeGateway) lastToken(t *testing.T, to string) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].To != to {
			continue
		}
		_, rest, ok := strings.Cut(g.sent[i].Text, "token=")
		require.True(t, ok, "no token link in %q", g.sent[i].Text)
		tok, _, _ := strings.Cut(rest, "\n")
		return tok
	}
	t.Fatalf("no message sent to %s", to)
	return ""
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

type identityFixture struct {
	db      *sql.DB
	svc     *IdentityService
	creds   *CredentialStore
	tokens  *TokenLedger
	gateway *fakeGateway
	clock   *fakeClock
}

func newIdentityFixture(t *testing.T, limiter *fakeLimiter, strict bool) *identityFixture {
	t.Helper()
	db, m := openDB(t)
	clock := newFakeClock()

	creds := NewCredentialStore(db, m, bcrypt.MinCost)
	creds.now = clock.Now
	tokens := NewTokenLedger(db, m)
	tokens.now = clock.Now
	gw := &fakeGateway{}

	var l throttle.Limiter
	if limiter != nil {
		l = limiter
	}

	svc := NewIdentityService(db, creds, tokens, gw, l, IdentityConfig{
		ConfirmTTL:        24 * time.Hour,
		ResetTTL:          30 * time.Minute,
		AccessTokenTTL:    15 * time.Minute,
		JWTSecret:         []byte("test-secret"),
		PublicBaseURL:     "https://records.example.org/",
		StrictLoginErrors: strict,
	}, testLogger())

	return &identityFixture{db: db, svc: svc, creds: creds, tokens: tokens, gateway: gw, clock: clock}
}

// registerActive registers and confirms an account.
func (f *identityFixture) registerActive(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, RegisterInput{FirstName: "Ana", LastName: "Pop", Email: email, Password: password}))
	require.NoError(t, f.svc.Confirm(ctx, f.gateway.lastToken(t, email)))
}
