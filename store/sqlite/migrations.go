package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// ExpectedSchemaVersion is the latest schema version the store expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(tx *sql.Tx, d dialect) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx, d dialect) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS adjustment_type (
					id ` + d.serialPK() + `,
					description TEXT NOT NULL,
					adjustment BIGINT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS adjustment (
					id ` + d.serialPK() + `,
					adjustment_type_id BIGINT NOT NULL REFERENCES adjustment_type(id) ON DELETE RESTRICT,
					description TEXT,
					created_at TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS time_entry (
					id ` + d.serialPK() + `,
					time BIGINT NOT NULL CHECK (time >= 0),
					created_at TEXT NOT NULL
				)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Index listing order and type references",
		Up: func(tx *sql.Tx, _ dialect) error {
			queries := []string{
				// Listing order is (created_at DESC, id DESC)
				`CREATE INDEX IF NOT EXISTS idx_adjustment_created ON adjustment(created_at, id)`,
				`CREATE INDEX IF NOT EXISTS idx_time_entry_created ON time_entry(created_at, id)`,
				// Type filter and delete-conflict check
				`CREATE INDEX IF NOT EXISTS idx_adjustment_type_ref ON adjustment(adjustment_type_id)`,
			}
			return execAll(tx, queries)
		},
	},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// migrate brings the schema up to ExpectedSchemaVersion.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		slog.Debug("Applied migration", "version", m.Version, "description", m.Description)
	}

	current, err = s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if current != ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d, expected %d", current, ExpectedSchemaVersion)
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := m.Up(tx, s.dialect); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.dialect.rebind("INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)"),
		m.Version, m.Description, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return s.schemaVersion(ctx)
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}
