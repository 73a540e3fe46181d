package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoad_JSONThenFlags(t *testing.T) {
	path := writeJSON(t, `{"server_endpoint_addr":"records:9000","request_timeout":"30s"}`)

	cfg, err := Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, "records:9000", cfg.ServerEndpointAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)

	cfg, err = Load([]string{"-config=" + path, "-a", "other:1", "login"})
	require.NoError(t, err)
	assert.Equal(t, "other:1", cfg.ServerEndpointAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoad_PartialJSONKeepsDefaults(t *testing.T) {
	cfg, err := Load([]string{"-c", writeJSON(t, `{"request_timeout":5000000000}`)})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	_, err = Load([]string{"-c", writeJSON(t, `{`)})
	assert.Error(t, err)

	_, err = Load([]string{"-t", "0"})
	assert.Error(t, err)

	_, err = Load([]string{"-t", "soon"})
	assert.Error(t, err)
}
