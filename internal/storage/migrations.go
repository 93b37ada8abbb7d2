package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL,
					hash TEXT NOT NULL,
					date DATETIME NOT NULL,
					counterparty_name TEXT NOT NULL,
					counterparty_account TEXT,
					amount TEXT NOT NULL,
					description TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (tenant_id, hash)
				)`,
				`CREATE INDEX idx_transactions_tenant_date ON transactions(tenant_id, date)`,

				`CREATE TABLE IF NOT EXISTS patterns (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL,
					counterparty_name TEXT NOT NULL,
					counterparty_account TEXT,
					average_amount TEXT NOT NULL,
					frequency TEXT NOT NULL,
					day_of_month INTEGER,
					confidence_score REAL NOT NULL DEFAULT 0,
					is_confirmed INTEGER NOT NULL DEFAULT 0,
					is_ignored INTEGER NOT NULL DEFAULT 0,
					last_occurrence DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_patterns_tenant ON patterns(tenant_id)`,

				`CREATE TABLE IF NOT EXISTS pattern_transactions (
					pattern_id TEXT NOT NULL REFERENCES patterns(id) ON DELETE CASCADE,
					transaction_id TEXT NOT NULL REFERENCES transactions(id),
					PRIMARY KEY (pattern_id, transaction_id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Index pattern review and membership lookups",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_patterns_tenant_review ON patterns(tenant_id, is_ignored, is_confirmed)`,
				`CREATE INDEX IF NOT EXISTS idx_pattern_transactions_txn ON pattern_transactions(transaction_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Enforce confirmed/ignored exclusivity in the database",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TRIGGER IF NOT EXISTS trg_patterns_review_state_insert
					BEFORE INSERT ON patterns
					WHEN NEW.is_confirmed = 1 AND NEW.is_ignored = 1
				BEGIN
					SELECT RAISE(ABORT, 'pattern cannot be both confirmed and ignored');
				END`,
				`CREATE TRIGGER IF NOT EXISTS trg_patterns_review_state_update
					BEFORE UPDATE ON patterns
					WHEN NEW.is_confirmed = 1 AND NEW.is_ignored = 1
				BEGIN
					SELECT RAISE(ABORT, 'pattern cannot be both confirmed and ignored');
				END`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
