package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	AppID        string `env:"APP_ID"`
	Environment  string `env:"ENVIRONMENT" envDefault:"production"`

	// YouTube
	CookieHeader string `env:"YT_COOKIE_HEADER"`

	// Playback
	FetchAttempts   int           `env:"FETCH_ATTEMPTS" envDefault:"3"`
	FetchRetryDelay time.Duration `env:"FETCH_RETRY_DELAY" envDefault:"1s"`
	MaxQueueLength  int           `env:"MAX_QUEUE_LENGTH" envDefault:"0"`
	FFmpegPath      string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	// Now playing message edits allowed per second, per guild
	ControlEditsPerSecond float64 `env:"CONTROL_EDITS_PER_SECOND" envDefault:"1"`

	// Play history
	HistoryPath            string        `env:"HISTORY_DB_PATH" envDefault:"history.db"`
	HistoryRetention       time.Duration `env:"HISTORY_RETENTION" envDefault:"720h"`
	HistoryCleanupSchedule string        `env:"HISTORY_CLEANUP_SCHEDULE" envDefault:"0 0 4 * * *"`

	// Metrics endpoint, empty disables it
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
}

var (
	ErrDiscordTokenNotSet     = errors.New("DISCORD_TOKEN is not set")
	ErrInvalidFetchAttempts   = errors.New("FETCH_ATTEMPTS must be at least 1")
	ErrInvalidFetchRetryDelay = errors.New("FETCH_RETRY_DELAY must not be negative")
	ErrInvalidMaxQueueLength  = errors.New("MAX_QUEUE_LENGTH must not be negative")
	ErrInvalidControlRate     = errors.New("CONTROL_EDITS_PER_SECOND must be positive")
)

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the bot cannot run with.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrDiscordTokenNotSet
	}
	if c.FetchAttempts < 1 {
		return ErrInvalidFetchAttempts
	}
	if c.FetchRetryDelay < 0 {
		return ErrInvalidFetchRetryDelay
	}
	if c.MaxQueueLength < 0 {
		return ErrInvalidMaxQueueLength
	}
	if c.ControlEditsPerSecond <= 0 {
		return ErrInvalidControlRate
	}
	return nil
}

// IsDevelopment reports whether the bot runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
