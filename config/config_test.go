package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/layer-3/portal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8080/api/v1/", cfg.Identity.URL)
	assert.Equal(t, 5*time.Second, cfg.Challenge.Timeout)
	assert.Equal(t, []string{"localhost", "myponyasia.com"}, cfg.Redirect.Domains)
	assert.Equal(t, "SID-MYPONYASIA", cfg.Cookie.AccessName)
	assert.Equal(t, "SIDR-MYPONYASIA", cfg.Cookie.RefreshName)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, 15*time.Minute, cfg.Screen.TTL)
	assert.Equal(t, time.Second, cfg.Screen.ConfirmDelay)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_SERVER_ADDR", ":9100")
	t.Setenv("PORTAL_CHALLENGE_TIMEOUT", "2s")
	t.Setenv("PORTAL_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("PORTAL_REDIRECT_DOMAINS", "example.org,myponyasia.com")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Challenge.Timeout)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, []string{"example.org", "myponyasia.com"}, cfg.Redirect.Domains)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
identity:
  url: https://id.myponyasia.com/api/v1/
  timeout: 10s
screen:
  ttl: 5m
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://id.myponyasia.com/api/v1/", cfg.Identity.URL)
	assert.Equal(t, 10*time.Second, cfg.Identity.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Screen.TTL)
	assert.Equal(t, time.Minute, cfg.Screen.SweepInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Challenge.StaticToken = ""
	require.EqualError(t, cfg.Validate(), "challenge.url or challenge.static_token is required")

	cfg.Challenge.URL = "https://challenge.myponyasia.com/execute"
	require.NoError(t, cfg.Validate())

	cfg.Identity.URL = ""
	require.EqualError(t, cfg.Validate(), "identity.url is required")
}

func TestLoadRejectsZeroBurst(t *testing.T) {
	t.Setenv("PORTAL_RATELIMIT_BURST", "0")

	_, err := config.Load("")
	require.EqualError(t, err, "ratelimit.burst must be positive")
}
