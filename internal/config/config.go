package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/voxclip/voxclip/pkg/playback"
)

// Config holds all configuration for the bot process.
type Config struct {
	DiscordToken  string `envconfig:"DISCORD_TOKEN" required:"true"`
	BotOwnerID    string `envconfig:"BOT_OWNER_ID" default:""`
	CommandPrefix string `envconfig:"COMMAND_PREFIX" default:"!"`

	// Local storage
	ClipsDir     string `envconfig:"CLIPS_DIR" default:"clips"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"voxclip.db"`

	// Per-guild playback defaults
	QueueSize          int           `envconfig:"QUEUE_SIZE" default:"3"`
	InactivityBehavior string        `envconfig:"INACTIVITY_BEHAVIOR" default:"disconnect"` // disconnect, timeout, manual
	InactiveTimeout    time.Duration `envconfig:"INACTIVE_TIMEOUT" default:"0s"`

	// Object storage for clip audio
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:""`
	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:""`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:""`
	SyncOnStart bool   `envconfig:"SYNC_ON_START" default:"true"`

	// HTTP API
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Observability
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"true"`
}

// Load reads configuration from a .env file if present, then from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv reads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// GuildDefaults converts the configured playback knobs into the
// settings handed to new guild trackers.
func (c *Config) GuildDefaults() playback.GuildSettings {
	settings := playback.DefaultGuildSettings()
	if c.QueueSize > 0 {
		settings.QueueSize = c.QueueSize
	}
	settings.InactivityBehavior = playback.ParseBehavior(c.InactivityBehavior)
	settings.InactiveTimeout = c.InactiveTimeout
	return settings
}
