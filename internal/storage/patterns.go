package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ebbcast/ebb/internal/common"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/ebbcast/ebb/internal/service"
	"github.com/shopspring/decimal"
)

// ErrPatternNotFound is returned when a pattern is not found.
var ErrPatternNotFound = fmt.Errorf("pattern %w", common.ErrNotFound)

// SavePattern creates a new pattern together with its source-transaction
// memberships.
func (s *SQLiteStorage) SavePattern(ctx context.Context, tenantID string, pattern *model.RecurringPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(tenantID, pattern); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO patterns (
			id, tenant_id, counterparty_name, counterparty_account,
			average_amount, frequency, day_of_month, confidence_score,
			is_confirmed, is_ignored, last_occurrence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pattern.ID, pattern.TenantID, pattern.CounterpartyName,
		nullableString(pattern.CounterpartyAccount),
		pattern.AverageAmount.String(), string(pattern.Frequency),
		nullableDay(pattern.DayOfMonth), pattern.ConfidenceScore,
		pattern.IsConfirmed, pattern.IsIgnored, pattern.LastOccurrence,
	)
	if err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	if err := replaceMemberships(ctx, tx, pattern); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pattern: %w", err)
	}

	slog.Info("created pattern",
		"id", pattern.ID,
		"tenant", tenantID,
		"counterparty", pattern.CounterpartyName,
		"frequency", pattern.Frequency)
	return nil
}

// UpdatePattern updates an existing pattern and replaces its
// source-transaction memberships.
func (s *SQLiteStorage) UpdatePattern(ctx context.Context, tenantID string, pattern *model.RecurringPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(tenantID, pattern); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE patterns SET
			counterparty_name = ?, counterparty_account = ?,
			average_amount = ?, frequency = ?, day_of_month = ?,
			confidence_score = ?, is_confirmed = ?, is_ignored = ?,
			last_occurrence = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?`,
		pattern.CounterpartyName, nullableString(pattern.CounterpartyAccount),
		pattern.AverageAmount.String(), string(pattern.Frequency),
		nullableDay(pattern.DayOfMonth), pattern.ConfidenceScore,
		pattern.IsConfirmed, pattern.IsIgnored, pattern.LastOccurrence,
		tenantID, pattern.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPatternNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM pattern_transactions WHERE pattern_id = ?", pattern.ID); err != nil {
		return fmt.Errorf("failed to clear pattern memberships: %w", err)
	}
	if err := replaceMemberships(ctx, tx, pattern); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pattern update: %w", err)
	}

	slog.Info("updated pattern", "id", pattern.ID, "tenant", tenantID,
		"sources", len(pattern.SourceTransactions))
	return nil
}

func replaceMemberships(ctx context.Context, tx *sql.Tx, pattern *model.RecurringPattern) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pattern_transactions (pattern_id, transaction_id)
		VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare membership statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range pattern.SourceTransactionIDs() {
		if _, err := stmt.ExecContext(ctx, pattern.ID, id); err != nil {
			return fmt.Errorf("failed to link transaction %s: %w", id, err)
		}
	}
	return nil
}

// GetPattern retrieves a pattern by ID, with its source transactions
// loaded, scoped to a tenant.
func (s *SQLiteStorage) GetPattern(ctx context.Context, tenantID, id string) (*model.RecurringPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, counterparty_name, counterparty_account,
			average_amount, frequency, day_of_month, confidence_score,
			is_confirmed, is_ignored, last_occurrence, created_at, updated_at
		FROM patterns
		WHERE tenant_id = ? AND id = ?`, tenantID, id)

	pattern, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadSourceTransactions(ctx, &pattern); err != nil {
		return nil, err
	}
	return &pattern, nil
}

// GetPatterns returns the tenant's patterns matching the filter, with
// source transactions loaded, ordered by counterparty name.
func (s *SQLiteStorage) GetPatterns(ctx context.Context, tenantID string, filter service.PatternFilter) ([]model.RecurringPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, counterparty_name, counterparty_account,
			average_amount, frequency, day_of_month, confidence_score,
			is_confirmed, is_ignored, last_occurrence, created_at, updated_at
		FROM patterns
		WHERE tenant_id = ?`
	args := []any{tenantID}

	if filter.Confirmed != nil {
		query += " AND is_confirmed = ?"
		args = append(args, *filter.Confirmed)
	}
	if filter.Ignored != nil {
		query += " AND is_ignored = ?"
		args = append(args, *filter.Ignored)
	}
	query += " ORDER BY counterparty_name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var patterns []model.RecurringPattern
	for rows.Next() {
		pattern, scanErr := scanPattern(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		patterns = append(patterns, pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	for i := range patterns {
		if err := s.loadSourceTransactions(ctx, &patterns[i]); err != nil {
			return nil, err
		}
	}

	slog.Debug("retrieved patterns", "tenant", tenantID, "count", len(patterns))
	return patterns, nil
}

// ConfirmPattern marks a pattern as user-confirmed, clearing any prior
// dismissal. Confirmed and ignored are mutually exclusive.
func (s *SQLiteStorage) ConfirmPattern(ctx context.Context, tenantID, id string) error {
	return s.setReviewState(ctx, tenantID, id, true, false)
}

// IgnorePattern marks a pattern as user-dismissed, clearing any prior
// confirmation.
func (s *SQLiteStorage) IgnorePattern(ctx context.Context, tenantID, id string) error {
	return s.setReviewState(ctx, tenantID, id, false, true)
}

func (s *SQLiteStorage) setReviewState(ctx context.Context, tenantID, id string, confirmed, ignored bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns
		SET is_confirmed = ?, is_ignored = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?`,
		confirmed, ignored, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update review state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPatternNotFound
	}

	slog.Info("updated pattern review state",
		"id", id, "tenant", tenantID, "confirmed", confirmed, "ignored", ignored)
	return nil
}

// loadSourceTransactions populates the pattern's member transactions,
// ordered by date.
func (s *SQLiteStorage) loadSourceTransactions(ctx context.Context, pattern *model.RecurringPattern) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.tenant_id, t.hash, t.date, t.counterparty_name,
			t.counterparty_account, t.amount, t.description
		FROM transactions t
		JOIN pattern_transactions pt ON pt.transaction_id = t.id
		WHERE pt.pattern_id = ?
		ORDER BY t.date, t.id`, pattern.ID)
	if err != nil {
		return fmt.Errorf("failed to query source transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	pattern.SourceTransactions = nil
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return scanErr
		}
		pattern.SourceTransactions = append(pattern.SourceTransactions, txn)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating source transactions: %w", err)
	}
	return nil
}

func scanPattern(row scanner) (model.RecurringPattern, error) {
	var (
		pattern    model.RecurringPattern
		account    sql.NullString
		dayOfMonth sql.NullInt64
		amount     string
		frequency  string
	)

	err := row.Scan(
		&pattern.ID, &pattern.TenantID, &pattern.CounterpartyName, &account,
		&amount, &frequency, &dayOfMonth, &pattern.ConfidenceScore,
		&pattern.IsConfirmed, &pattern.IsIgnored, &pattern.LastOccurrence,
		&pattern.CreatedAt, &pattern.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return pattern, err
	}
	if err != nil {
		return pattern, fmt.Errorf("failed to scan pattern: %w", err)
	}

	pattern.CounterpartyAccount = account.String
	pattern.Frequency = model.Frequency(frequency)
	if dayOfMonth.Valid {
		pattern.DayOfMonth = int(dayOfMonth.Int64)
	}
	pattern.AverageAmount, err = decimal.NewFromString(amount)
	if err != nil {
		return pattern, fmt.Errorf("failed to parse average amount %q: %w", amount, err)
	}
	return pattern, nil
}

func nullableDay(day int) any {
	if day == 0 {
		return nil
	}
	return day
}
