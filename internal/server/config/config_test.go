package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siatlite/casedesk/internal/dbx"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, dbx.DialectPostgres, c.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, c.ConfirmTokenTTL)
	assert.Equal(t, 30*time.Minute, c.ResetTokenTTL)
	assert.Equal(t, NotifyLog, c.NotifyProvider)
	assert.False(t, c.StrictLoginErrors)
	require.NoError(t, c.Validate())
}

func TestLoad_NoArgsGivesDefaults(t *testing.T) {
	c, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoad_JSONThenFlags(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_grpc":  "json:1",
		"database_driver":     "sqlite",
		"database_dsn":        "file:casedesk.db",
		"confirm_token_ttl":   "48h",
		"reset_token_ttl":     "15m",
		"strict_login_errors": true,
		"notify_provider":     "sendgrid",
		"sendgrid_api_key":    "SG.key",
		"throttle_limit":      0,
		"token_retention":     "24h",
	})

	c, err := Load([]string{"-c", path, "-a", "flag:2", "-t", "5"})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddrGRPC = "flag:2"
	want.DatabaseDriver = dbx.DialectSQLite
	want.DatabaseDSN = "file:casedesk.db"
	want.ConfirmTokenTTL = 48 * time.Hour
	want.ResetTokenTTL = 15 * time.Minute
	want.StrictLoginErrors = true
	want.NotifyProvider = NotifySendGrid
	want.SendGridAPIKey = "SG.key"
	want.ThrottleLimit = 0
	want.TokenRetention = 24 * time.Hour
	want.AccessTokenValidityDuration = 5 * time.Minute

	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseFlags(t *testing.T) {
	c := defaults()
	err := parseFlags(c, []string{
		"-a", "127.0.0.1:9090", "-b", "sqlite", "-d", "db", "-s", "secret", "-t", "1",
		"-u", "https://cases.example", "-n", "smtp", "-r", "redis:6379", "-l", "debug",
		"-strict-login", "-unrelated", "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", c.EndpointAddrGRPC)
	assert.Equal(t, dbx.DialectSQLite, c.DatabaseDriver)
	assert.Equal(t, "db", c.DatabaseDSN)
	assert.Equal(t, "secret", c.SecretKey)
	assert.Equal(t, time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, "https://cases.example", c.PublicBaseURL)
	assert.Equal(t, NotifySMTP, c.NotifyProvider)
	assert.Equal(t, "redis:6379", c.RedisAddr)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.StrictLoginErrors)
}

func TestParseJson_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ not json`), 0o600))

	require.Error(t, parseJson(defaults(), []string{"-config", bad}))
	require.Error(t, parseJson(defaults(), []string{"-config", filepath.Join(dir, "missing.json")}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }},
		{name: "provider", mutate: func(c *Config) { c.NotifyProvider = "pigeon" }},
		{name: "ttl", mutate: func(c *Config) { c.ResetTokenTTL = 0 }},
		{name: "secret", mutate: func(c *Config) { c.SecretKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig_PanicsOnInvalid(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"casedesk", "-b", "oracle"}
	assert.Panics(t, func() { LoadConfig() })
}
