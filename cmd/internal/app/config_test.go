package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 730*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 32, cfg.Auth.RefreshTokenBytes)
	assert.Equal(t, 100_000, cfg.Auth.PBKDF2Iterations)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.True(t, cfg.DB.Migrate)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("PULSELOG_HTTP_ADDR", ":9999")
	t.Setenv("PULSELOG_AUTH_ACCESS_TTL", "5m")
	t.Setenv("PULSELOG_AUTH_COOKIE_SECURE", "false")
	t.Setenv("PULSELOG_DB_MAX_CONNS", "4")
	t.Setenv("PULSELOG_CORS_ALLOWED_ORIGINS", "https://a.example, http://localhost:*/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.EqualValues(t, 4, cfg.DB.MaxConns)
	assert.Equal(t, []string{"https://a.example", "http://localhost:*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulselog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
auth:
  access_secret: "0123456789abcdef0123456789abcdef"
cors:
  allowed_origins:
    - https://health.example
`), 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://health.example"}, cfg.CORS.AllowedOrigins)
	assert.NoError(t, ValidateSecurityConfig(cfg))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateSecurityConfig(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, ValidateSecurityConfig(cfg))

	weak := cfg
	weak.Auth.AccessSecret = "too-short"
	assert.ErrorContains(t, ValidateSecurityConfig(weak), "PULSELOG_AUTH_ACCESS_SECRET")

	hmac := cfg
	hmac.Auth.RequireTokenHMAC = true
	assert.ErrorContains(t, ValidateSecurityConfig(hmac), "TOKEN_HMAC_KEY is missing")

	hmac.Auth.TokenHMACKey = "short"
	assert.Error(t, ValidateSecurityConfig(hmac))

	hmac.Auth.TokenHMACKey = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, ValidateSecurityConfig(hmac))

	cheap := cfg
	cheap.Auth.PBKDF2Iterations = 100
	assert.Error(t, ValidateSecurityConfig(cheap))
}
