package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ebbcast/ebb/internal/common"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/ebbcast/ebb/internal/service"
	"github.com/shopspring/decimal"
)

// ErrTransactionNotFound is returned when a transaction is not found.
var ErrTransactionNotFound = fmt.Errorf("transaction %w", common.ErrNotFound)

// SaveTransactions saves multiple transactions for a tenant and returns
// the number of newly inserted rows. Duplicates (same tenant and content
// hash) are silently skipped.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, tenantID string, transactions []model.BankTransaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return 0, err
	}
	if err := validateTransactions(tenantID, transactions); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, tenant_id, hash, date, counterparty_name,
			counterparty_account, amount, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		result, execErr := stmt.ExecContext(ctx,
			txn.ID,
			txn.TenantID,
			txn.Hash,
			txn.Date,
			txn.CounterpartyName,
			nullableString(txn.CounterpartyAccount),
			txn.Amount.String(),
			nullableString(txn.Description),
		)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, execErr)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Debug("saved transactions", "tenant", tenantID, "total", len(transactions), "inserted", inserted)
	return inserted, nil
}

// GetTransactions returns the tenant's transactions matching the filter,
// ordered by booking date ascending.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, tenantID string, filter service.TransactionFilter) ([]model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: %v after %v", ErrInvalidDateRange, filter.StartDate, filter.EndDate)
	}

	var conditions []string
	args := []any{tenantID}
	conditions = append(conditions, "tenant_id = ?")

	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.EndDate)
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, hash, date, counterparty_name,
			counterparty_account, amount, description
		FROM transactions
		WHERE %s
		ORDER BY date, id`, strings.Join(conditions, " AND "))

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var transactions []model.BankTransaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// GetTransactionByID retrieves a single transaction scoped to a tenant.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, tenantID, id string) (*model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, hash, date, counterparty_name,
			counterparty_account, amount, description
		FROM transactions
		WHERE tenant_id = ? AND id = ?`, tenantID, id)

	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransactionCount returns the number of stored transactions for a
// tenant.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context, tenantID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE tenant_id = ?", tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (model.BankTransaction, error) {
	var (
		txn         model.BankTransaction
		account     sql.NullString
		description sql.NullString
		amount      string
	)

	err := row.Scan(
		&txn.ID, &txn.TenantID, &txn.Hash, &txn.Date, &txn.CounterpartyName,
		&account, &amount, &description,
	)
	if err == sql.ErrNoRows {
		return txn, err
	}
	if err != nil {
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.CounterpartyAccount = account.String
	txn.Description = description.String
	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return txn, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	return txn, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
