package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir() + "/"
	writeFile(t, dir, "config.yaml", `
database:
  host: db
  port: "5433"
  name: contest
telegram:
  botToken: file-token
  workers: 8
flow:
  sessionTTL: 30m
  regions: [Tashkent, Nukus]
admins: [1, 2]
logLevel: debug
`)
	t.Setenv("APP_DATABASE_PASSWORD", "secret")
	t.Setenv("APP_TELEGRAM_BOTTOKEN", "env-token")

	cfg, err := LoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5433", cfg.Database.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, 8, cfg.Telegram.Workers)
	assert.Equal(t, 60, cfg.Telegram.UpdateTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Flow.SessionTTL)
	assert.Equal(t, []string{"Tashkent", "Nukus"}, cfg.Flow.Regions)
	assert.Equal(t, []int64{1, 2}, cfg.Admins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoadConfig_DotEnvWithoutConfigFile(t *testing.T) {
	dir := t.TempDir() + "/"
	writeFile(t, dir, ".env", "APP_TELEGRAM_BOTTOKEN=dotenv-token\nAPP_REDIS_URL=redis://localhost:6379/0\n")
	t.Cleanup(func() {
		os.Unsetenv("APP_TELEGRAM_BOTTOKEN")
		os.Unsetenv("APP_REDIS_URL")
	})

	cfg, err := LoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.Telegram.BotToken)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 72*time.Hour, cfg.Flow.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_RequiresBotToken(t *testing.T) {
	t.Setenv("APP_TELEGRAM_BOTTOKEN", "")

	_, err := LoadConfig(t.TempDir() + "/")

	assert.ErrorContains(t, err, "telegram.botToken")
}
