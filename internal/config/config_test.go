package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: "9090"
redis:
  addr: "localhost:6379"
  ttl: 5m
auth:
  jwtSecret: "0123456789abcdef0123456789abcdef"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 50, cfg.Leaderboard.Limit)
	assert.Equal(t, 5*time.Minute, TTLDuration(cfg.Redis.TTL, time.Minute))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POSTGRES_URL", "postgres://quiz:pass@db:5432/quiz?sslmode=disable")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "postgres://quiz:pass@db:5432/quiz?sslmode=disable", cfg.Postgres.URL)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	_, err := Load(writeConfig(t, "auth:\n  jwtSecret: short\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+"app:\n  logLevel: chatty\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestTTLDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, TTLDuration("2s", time.Minute))
}
