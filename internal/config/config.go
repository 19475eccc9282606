package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every load or validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the bot configuration
type Config struct {
	DiscordToken         string        `mapstructure:"discord_token" validate:"required"`
	GuildID              string        `mapstructure:"guild_id" validate:"required,numeric"`
	ChannelID            string        `mapstructure:"channel_id" validate:"required,numeric"`
	OwnerID              string        `mapstructure:"owner_id" validate:"required,numeric"`
	ControllerRoleID     string        `mapstructure:"controller_role_id" validate:"omitempty,numeric"`
	CallsignsFile        string        `mapstructure:"callsigns_file" validate:"required"`
	PollInterval         time.Duration `mapstructure:"poll_interval" validate:"min=10s"`
	RoleSyncInterval     time.Duration `mapstructure:"role_sync_interval" validate:"min=10s"`
	RosterUpdateInterval time.Duration `mapstructure:"roster_update_interval" validate:"min=1m"`
	RosterRetryDelay     time.Duration `mapstructure:"roster_retry_delay" validate:"min=1s"`
	HTTPTimeout          time.Duration `mapstructure:"http_timeout" validate:"min=1s,max=2m"`

	CheckWXAPIKey    string        `mapstructure:"checkwx_api_key"`
	CheckWXBaseURL   string        `mapstructure:"checkwx_base_url" validate:"required,url"`
	WeatherCacheTTL  time.Duration `mapstructure:"weather_cache_ttl" validate:"min=0"`
	WeatherCacheSize int           `mapstructure:"weather_cache_size" validate:"min=1"`

	TelegramToken      string        `mapstructure:"telegram_token"`
	TelegramChannelID  string        `mapstructure:"telegram_channel_id" validate:"required_with=TelegramToken"`
	TelegramMaxRetries int           `mapstructure:"telegram_max_retries" validate:"min=1,max=10"`
	TelegramRetryDelay time.Duration `mapstructure:"telegram_retry_delay" validate:"min=0"`

	VATEUDAPIKey    string `mapstructure:"vateud_api_key"`
	VATEUDRosterURL string `mapstructure:"vateud_roster_url" validate:"required,url"`
	VATSIMDataURL   string `mapstructure:"vatsim_data_url" validate:"required,url"`

	DatabaseURL string `mapstructure:"database_url"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
	LogFile   string `mapstructure:"log_file"`
}

// envBindings maps config keys to the environment variables the deployment sets
var envBindings = map[string]string{
	"discord_token":          "DISCORD_BOT_TOKEN",
	"guild_id":               "DISCORD_GUILD_ID",
	"channel_id":             "DISCORD_CHANNEL_ID",
	"owner_id":               "DISCORD_OWNER_ID",
	"controller_role_id":     "DISCORD_CONTROLLER_ROLE_ID",
	"callsigns_file":         "CALLSIGNS_FILE",
	"poll_interval":          "POLL_INTERVAL",
	"role_sync_interval":     "ROLE_SYNC_INTERVAL",
	"roster_update_interval": "ROSTER_UPDATE_INTERVAL",
	"roster_retry_delay":     "ROSTER_RETRY_DELAY",
	"http_timeout":           "HTTP_TIMEOUT",
	"checkwx_api_key":        "CHECKWX_API_KEY",
	"checkwx_base_url":       "CHECKWX_BASE_URL",
	"weather_cache_ttl":      "WEATHER_CACHE_TTL",
	"weather_cache_size":     "WEATHER_CACHE_SIZE",
	"telegram_token":         "TELEGRAM_TOKEN",
	"telegram_channel_id":    "TELEGRAM_CHANNEL_ID",
	"telegram_max_retries":   "TELEGRAM_MAX_RETRIES",
	"telegram_retry_delay":   "TELEGRAM_RETRY_DELAY",
	"vateud_api_key":         "VATEUD_API_KEY",
	"vateud_roster_url":      "VATEUD_ROSTER_URL",
	"vatsim_data_url":        "VATSIM_DATA_URL",
	"database_url":           "DATABASE_URL",
	"log_level":              "LOG_LEVEL",
	"log_format":             "LOG_FORMAT",
	"log_file":               "LOG_FILE",
}

var defaults = map[string]any{
	"callsigns_file":         "callsigns.txt",
	"poll_interval":          time.Minute,
	"role_sync_interval":     time.Minute,
	"roster_update_interval": time.Hour,
	"roster_retry_delay":     time.Minute,
	"http_timeout":           15 * time.Second,
	"checkwx_base_url":       "https://api.checkwx.com",
	"weather_cache_ttl":      5 * time.Minute,
	"weather_cache_size":     128,
	"telegram_max_retries":   3,
	"telegram_retry_delay":   5 * time.Second,
	"vateud_roster_url":      "https://core.vateud.net/api/facility/roster",
	"vatsim_data_url":        "https://data.vatsim.net/v3/vatsim-data.json",
	"log_level":              "info",
	"log_format":             "text",
}

// Load reads configuration from defaults, an optional YAML file, an optional
// .env file and the process environment, in that order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: reading .env: %v", ErrInvalidConfig, err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("%w: binding %s: %v", ErrInvalidConfig, env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// TelegramEnabled reports whether announcements are mirrored to Telegram
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// RoleSyncEnabled reports whether the controller role is managed
func (c *Config) RoleSyncEnabled() bool {
	return c.ControllerRoleID != ""
}

// Keys lists the environment variables that are set, without their values.
func (c *Config) Keys() []string {
	fields := []struct {
		env   string
		value string
	}{
		{"DISCORD_BOT_TOKEN", c.DiscordToken},
		{"DISCORD_GUILD_ID", c.GuildID},
		{"DISCORD_CHANNEL_ID", c.ChannelID},
		{"DISCORD_OWNER_ID", c.OwnerID},
		{"DISCORD_CONTROLLER_ROLE_ID", c.ControllerRoleID},
		{"CHECKWX_API_KEY", c.CheckWXAPIKey},
		{"TELEGRAM_TOKEN", c.TelegramToken},
		{"TELEGRAM_CHANNEL_ID", c.TelegramChannelID},
		{"VATEUD_API_KEY", c.VATEUDAPIKey},
		{"DATABASE_URL", c.DatabaseURL},
		{"LOG_FILE", c.LogFile},
	}

	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value != "" {
			keys = append(keys, f.env)
		}
	}
	return keys
}
