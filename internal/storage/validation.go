// Package storage provides the data persistence layer for the ebb
// application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ebbcast/ebb/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrTenantMismatch     = errors.New("record does not belong to tenant")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions against a tenant.
func validateTransactions(tenantID string, transactions []model.BankTransaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(tenantID, &txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(tenantID string, txn *model.BankTransaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.TenantID != tenantID {
		return fmt.Errorf("%w: transaction %s has tenant %q", ErrTenantMismatch, txn.ID, txn.TenantID)
	}
	return nil
}

// validatePattern validates a pattern against its own invariants and the
// tenant scope of the call.
func validatePattern(tenantID string, pattern *model.RecurringPattern) error {
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if pattern.ID == "" {
		return fmt.Errorf("invalid pattern: missing ID")
	}
	if pattern.TenantID != tenantID {
		return fmt.Errorf("%w: pattern %s has tenant %q", ErrTenantMismatch, pattern.ID, pattern.TenantID)
	}
	return pattern.Validate()
}
