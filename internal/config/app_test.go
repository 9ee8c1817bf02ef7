package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mmvalue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  request_timeout: 2s
cache:
  backend: redis
  redis_addr: redis:6379
  ttl: 1h
rate_limit:
  rps: 2.5
  burst: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, "mmvalue:", cfg.Cache.Prefix)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("MMVALUE_PORT", "7070")
	t.Setenv("MMVALUE_CACHE_BACKEND", "none")
	t.Setenv("MMVALUE_CACHE_TTL", "90s")
	t.Setenv("MMVALUE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejects(t *testing.T) {
	t.Run("bad env number", func(t *testing.T) {
		t.Setenv("MMVALUE_PORT", "eighty")
		_, err := Load("")
		assert.ErrorContains(t, err, "MMVALUE_PORT")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Load(writeConfig(t, "cache:\n  backend: memcached\n"))
		assert.ErrorContains(t, err, "unknown cache backend")
	})

	t.Run("zero rate", func(t *testing.T) {
		_, err := Load(writeConfig(t, "rate_limit:\n  rps: 0\n"))
		assert.ErrorContains(t, err, "rps must be positive")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unclosed"))
		assert.ErrorContains(t, err, "failed to parse config")
	})
}
