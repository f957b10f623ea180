package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadResolvesRelativeSQLitePath(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {"server_address": ":9000"},
		"databases": {"sqlite3": {"dsn": "data/social.db"}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "social.db"), cfg.Databases["sqlite3"].DSN)
	// untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadKeepsMemoryDSN(t *testing.T) {
	path := writeConfig(t, `{"databases": {"sqlite3": {"dsn": ":memory:"}}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Databases["sqlite3"].DSN)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadRejectsEmptyDatabases(t *testing.T) {
	path := writeConfig(t, `{"databases": {}}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, "social.db", cfg.Databases["sqlite3"].DSN)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 2, cfg.BasicConfig.EventWorkers)
	assert.Equal(t, 256, cfg.BasicConfig.EventQueueSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOCIALMEDIA_ADDR", ":7070")
	t.Setenv("SOCIALMEDIA_LOG_LEVEL", "debug")
	t.Setenv("SOCIALMEDIA_REDIS_ADDR", "redis.local:6380")
	path := writeConfig(t, `{"databases": {"sqlite3": {"dsn": ":memory:"}}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.local", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
}

func TestEnvOverrideBadRedisAddr(t *testing.T) {
	t.Setenv("SOCIALMEDIA_REDIS_ADDR", "no-port")
	path := writeConfig(t, `{"databases": {"sqlite3": {"dsn": ":memory:"}}}`)

	_, err := Load(path)
	assert.Error(t, err)
}
