package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// HistoryStore persists play history in SQLite
type HistoryStore struct {
	db     *sql.DB
	config *DatabaseConfig
	logger zerolog.Logger
}

// NewHistoryStore opens (and creates if needed) the history database
func NewHistoryStore(config *DatabaseConfig, logger zerolog.Logger) (*HistoryStore, error) {
	if config == nil {
		config = DefaultDatabaseConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	db, err := sql.Open("sqlite3", buildConnectionString(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := newMigrator(db, logger).Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info().Str("path", config.DatabasePath).Msg("History database ready")
	return &HistoryStore{db: db, config: config, logger: logger}, nil
}

func buildConnectionString(config *DatabaseConfig) string {
	params := url.Values{}
	if config.WALMode {
		params.Set("_journal_mode", "WAL")
	}
	params.Set("_synchronous", config.SynchronousMode)
	if config.BusyTimeout > 0 {
		params.Set("_busy_timeout", fmt.Sprint(config.BusyTimeout.Milliseconds()))
	}
	return "file:" + config.DatabasePath + "?" + params.Encode()
}

// Close closes the database connection
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Ping tests the database connection
func (s *HistoryStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseNotConnected
	}
	return s.db.PingContext(ctx)
}

// InsertPlays stores records in a single transaction
func (s *HistoryStore) InsertPlays(ctx context.Context, records []*PlayRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO play_history (run_id, guild_id, locator, title, requested_by, outcome, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.RunID, r.GuildID, r.Locator, r.Title, r.RequestedBy,
			string(r.Outcome), r.Error, r.StartedAt.UTC(), r.EndedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert play: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			r.ID = id
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// RecentPlays returns the latest plays of a guild, newest first
func (s *HistoryStore) RecentPlays(ctx context.Context, guildID string, limit int) ([]PlayRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, guild_id, locator, title, requested_by, outcome, error, started_at, ended_at
		FROM play_history
		WHERE guild_id = ?
		ORDER BY ended_at DESC, id DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}
	defer rows.Close()

	var records []PlayRecord
	for rows.Next() {
		var r PlayRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.RunID, &r.GuildID, &r.Locator, &r.Title, &r.RequestedBy,
			&outcome, &r.Error, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		r.Outcome = Outcome(outcome)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read play history: %w", err)
	}
	return records, nil
}

// CountPlays returns the number of stored plays
func (s *HistoryStore) CountPlays(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM play_history").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// PruneBefore removes plays that ended before cutoff and returns how many were removed
func (s *HistoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM play_history WHERE ended_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune play history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned plays: %w", err)
	}
	return n, nil
}

// CleanExpiredData removes plays older than the configured retention
func (s *HistoryStore) CleanExpiredData(ctx context.Context) (int64, error) {
	n, err := s.PruneBefore(ctx, time.Now().Add(-s.config.HistoryRetention))
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("removed", n).Dur("retention", s.config.HistoryRetention).Msg("Cleaned expired play history")
	return n, nil
}
