package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "./data/remindbot.db", cfg.DatabasePath)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 3, cfg.DefaultUTCOffset)
	assert.Equal(t, "* * * * *", cfg.CheckInterval)
	assert.Equal(t, 10, cfg.CleanupEvery)
	assert.Equal(t, 10*time.Minute, cfg.DeleteContextTTL)
	assert.False(t, cfg.UseWebhook())
	assert.False(t, cfg.IsAdmin(0))
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com")
	t.Setenv("ADMIN_TELEGRAM_ID", "42")
	t.Setenv("DEFAULT_UTC_OFFSET", "-5")
	t.Setenv("DELETE_CONTEXT_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UseWebhook())
	assert.True(t, cfg.IsAdmin(42))
	assert.Equal(t, -5, cfg.DefaultUTCOffset)
	assert.Equal(t, 90*time.Second, cfg.DeleteContextTTL)
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DEFAULT_UTC_OFFSET", "20")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DEFAULT_UTC_OFFSET", "")
	t.Setenv("CLEANUP_EVERY", "often")
	_, err = Load()
	assert.Error(t, err)
}
