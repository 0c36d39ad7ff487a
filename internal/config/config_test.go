package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 3, cfg.FetchAttempts)
	assert.Equal(t, time.Second, cfg.FetchRetryDelay)
	assert.Equal(t, 0, cfg.MaxQueueLength)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 1.0, cfg.ControlEditsPerSecond)
	assert.Equal(t, "history.db", cfg.HistoryPath)
	assert.Equal(t, 720*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.False(t, cfg.IsDevelopment())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("FETCH_ATTEMPTS", "5")
	t.Setenv("FETCH_RETRY_DELAY", "250ms")
	t.Setenv("YT_COOKIE_HEADER", "SID=abc")
	t.Setenv("METRICS_ADDR", "")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 5, cfg.FetchAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.FetchRetryDelay)
	assert.Equal(t, "SID=abc", cfg.CookieHeader)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{DiscordToken: "t", FetchAttempts: 3, FetchRetryDelay: time.Second, ControlEditsPerSecond: 1}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing token", func(c *Config) { c.DiscordToken = "" }, ErrDiscordTokenNotSet},
		{"zero attempts", func(c *Config) { c.FetchAttempts = 0 }, ErrInvalidFetchAttempts},
		{"negative delay", func(c *Config) { c.FetchRetryDelay = -time.Second }, ErrInvalidFetchRetryDelay},
		{"negative queue length", func(c *Config) { c.MaxQueueLength = -1 }, ErrInvalidMaxQueueLength},
		{"zero edit rate", func(c *Config) { c.ControlEditsPerSecond = 0 }, ErrInvalidControlRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
