// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ebbcast/ebb/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Results are always ordered by booking date ascending.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// PatternFilter defines filtering options for pattern queries.
type PatternFilter struct {
	Confirmed *bool
	Ignored   *bool
}

// Storage defines the contract for the persistence layer. Every query is
// explicitly scoped to a tenant; there is no ambient tenant context.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, tenantID string, transactions []model.BankTransaction) (int, error)
	GetTransactions(ctx context.Context, tenantID string, filter TransactionFilter) ([]model.BankTransaction, error)
	GetTransactionByID(ctx context.Context, tenantID, id string) (*model.BankTransaction, error)
	GetTransactionCount(ctx context.Context, tenantID string) (int, error)

	// Pattern operations
	SavePattern(ctx context.Context, tenantID string, pattern *model.RecurringPattern) error
	UpdatePattern(ctx context.Context, tenantID string, pattern *model.RecurringPattern) error
	GetPattern(ctx context.Context, tenantID, id string) (*model.RecurringPattern, error)
	GetPatterns(ctx context.Context, tenantID string, filter PatternFilter) ([]model.RecurringPattern, error)
	ConfirmPattern(ctx context.Context, tenantID, id string) error
	IgnorePattern(ctx context.Context, tenantID, id string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ForecastRequest describes a projection query.
type ForecastRequest struct {
	From          time.Time
	To            time.Time
	IncludeIncome bool
	IncludeCosts  bool
}

// ForecastResult carries the projected entries, their monthly
// aggregates, and the patterns the projection was built from.
type ForecastResult struct {
	Entries  []model.ForecastEntry
	Months   []model.MonthlyTotal
	Patterns []model.RecurringPattern
}

// DetectionStats shows the results of a detection run.
type DetectionStats struct {
	TransactionsSeen int
	PatternsCreated  int
	PatternsUpdated  int
	Duration         time.Duration
}
