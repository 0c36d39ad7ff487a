package database

import (
	"context"
	"crypto/md5"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// migration is a single forward schema change
type migration struct {
	Version     int
	Name        string
	Description string
	UpSQL       string
}

// migrations are applied in order; never edit one that has shipped
var migrations = []migration{
	{
		Version:     1,
		Name:        "initial_play_history",
		Description: "Create the play history table",
		UpSQL: `
			CREATE TABLE IF NOT EXISTS play_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL,
				guild_id TEXT NOT NULL,
				locator TEXT NOT NULL,
				title TEXT NOT NULL,
				requested_by TEXT NOT NULL DEFAULT '',
				outcome TEXT NOT NULL,
				error TEXT NOT NULL DEFAULT '',
				started_at DATETIME NOT NULL,
				ended_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_play_history_guild_ended ON play_history(guild_id, ended_at);
		`,
	},
	{
		Version:     2,
		Name:        "play_history_retention_index",
		Description: "Index play history by end time for retention cleanup",
		UpSQL: `
			CREATE INDEX IF NOT EXISTS idx_play_history_ended ON play_history(ended_at);
		`,
	},
}

// ErrChecksumMismatch is returned when an applied migration differs from the
// one compiled into the binary.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// migrator tracks applied migrations in the schema_migrations table
type migrator struct {
	db         *sql.DB
	migrations []migration
	logger     zerolog.Logger
}

func newMigrator(db *sql.DB, logger zerolog.Logger) *migrator {
	return &migrator{db: db, migrations: migrations, logger: logger}
}

func (m *migrator) initializeMigrationTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		checksum TEXT NOT NULL,
		applied_at DATETIME NOT NULL
	)
	`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// CurrentVersion returns the highest applied migration version
func (m *migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// LatestVersion returns the latest available migration version
func (m *migrator) LatestVersion() int {
	latest := 0
	for _, mig := range m.migrations {
		if mig.Version > latest {
			latest = mig.Version
		}
	}
	return latest
}

// Migrate validates applied migrations and runs pending ones
func (m *migrator) Migrate(ctx context.Context) error {
	if err := m.initializeMigrationTable(ctx); err != nil {
		return err
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if mig.Version <= current {
			if err := m.validateChecksum(ctx, mig); err != nil {
				return err
			}
			continue
		}
		if err := m.run(ctx, mig); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", mig.Version, err)
		}
		m.logger.Info().Int("version", mig.Version).Str("name", mig.Name).Msg("Applied migration")
	}

	if latest := m.LatestVersion(); current >= latest {
		m.logger.Debug().Int("version", current).Msg("Database is up to date")
	}
	return nil
}

func (m *migrator) run(ctx context.Context, mig migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.UpSQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, name, description, checksum, applied_at)
		VALUES (?, ?, ?, ?, ?)
	`, mig.Version, mig.Name, mig.Description, checksum(mig.UpSQL), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update migration tracking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func (m *migrator) validateChecksum(ctx context.Context, mig migration) error {
	var stored string
	err := m.db.QueryRowContext(ctx, "SELECT checksum FROM schema_migrations WHERE version = ?", mig.Version).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get stored checksum: %w", err)
	}
	if current := checksum(mig.UpSQL); stored != current {
		return fmt.Errorf("%w: version %d stored=%s current=%s", ErrChecksumMismatch, mig.Version, stored, current)
	}
	return nil
}

func checksum(sql string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(sql)))
}
