package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_ID", "111111111111111111")
	t.Setenv("DISCORD_CHANNEL_ID", "222222222222222222")
	t.Setenv("DISCORD_OWNER_ID", "333333333333333333")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "111111111111111111", cfg.GuildID)
	assert.Equal(t, "callsigns.txt", cfg.CallsignsFile)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, time.Hour, cfg.RosterUpdateInterval)
	assert.Equal(t, 3, cfg.TelegramMaxRetries)
	assert.Equal(t, 5*time.Second, cfg.TelegramRetryDelay)
	assert.Equal(t, "https://data.vatsim.net/v3/vatsim-data.json", cfg.VATSIMDataURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.RoleSyncEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TELEGRAM_TOKEN", "tg")
	t.Setenv("TELEGRAM_CHANNEL_ID", "-100123")
	t.Setenv("DISCORD_CONTROLLER_ROLE_ID", "444444444444444444")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.TelegramEnabled())
	assert.True(t, cfg.RoleSyncEnabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_TelegramChannelRequiredWithToken(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_TOKEN", "tg")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_PollIntervalTooShort(t *testing.T) {
	setRequired(t)
	t.Setenv("POLL_INTERVAL", "1s")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("callsigns_file: sectors.txt\nrole_sync_interval: 2m\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sectors.txt", cfg.CallsignsFile)
	assert.Equal(t, 2*time.Minute, cfg.RoleSyncInterval)
}

func TestLoad_MissingYAMLFileIsFine(t *testing.T) {
	setRequired(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestKeys_OmitsUnset(t *testing.T) {
	cfg := &Config{DiscordToken: "x", GuildID: "1", TelegramToken: "t"}
	assert.Equal(t, []string{"DISCORD_BOT_TOKEN", "DISCORD_GUILD_ID", "TELEGRAM_TOKEN"}, cfg.Keys())
}
