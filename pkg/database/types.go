package database

import (
	"time"
)

// DatabaseConfig holds configuration for the history store
type DatabaseConfig struct {
	DatabasePath string `json:"database_path"`

	// Batching of history writes
	BatchSize     int           `json:"batch_size"`
	FlushInterval time.Duration `json:"flush_interval"`

	// Plays older than this are removed by Prune
	HistoryRetention time.Duration `json:"history_retention"`

	// Performance settings
	WALMode         bool   `json:"wal_mode"`
	SynchronousMode string `json:"synchronous_mode"`
	BusyTimeout     time.Duration
}

// DefaultDatabaseConfig returns a configuration with sensible defaults
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		DatabasePath: "history.db",

		BatchSize:     50,
		FlushInterval: 5 * time.Second,

		HistoryRetention: 30 * 24 * time.Hour, // 30 days

		WALMode:         true,
		SynchronousMode: "NORMAL",
		BusyTimeout:     5 * time.Second,
	}
}

// Validate validates the database configuration
func (c *DatabaseConfig) Validate() error {
	if c.DatabasePath == "" {
		return ErrInvalidDatabasePath
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.FlushInterval <= 0 {
		return ErrInvalidFlushInterval
	}
	if c.HistoryRetention <= 0 {
		return ErrInvalidHistoryRetention
	}
	switch c.SynchronousMode {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return ErrInvalidSynchronousMode
	}
	return nil
}

// Outcome is how a play ended.
type Outcome string

const (
	OutcomeFinished Outcome = "finished"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// PlayRecord is one row of play history
type PlayRecord struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"` // one per voice session
	GuildID     string    `json:"guild_id"`
	Locator     string    `json:"locator"`
	Title       string    `json:"title"`
	RequestedBy string    `json:"requested_by"`
	Outcome     Outcome   `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

// Duration returns how long the track was rendered.
func (r PlayRecord) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// BatchProcessorStats holds statistics about batch processing
type BatchProcessorStats struct {
	ProcessedCount int64 `json:"processed_count"`
	ErrorCount     int64 `json:"error_count"`
	DroppedCount   int64 `json:"dropped_count"`
	BufferSize     int   `json:"buffer_size"`
}
