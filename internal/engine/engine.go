// Package engine orchestrates detection and forecasting over the
// persistence layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ebbcast/ebb/internal/common"
	"github.com/ebbcast/ebb/internal/forecast"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/ebbcast/ebb/internal/recurring"
	"github.com/ebbcast/ebb/internal/service"
)

// Engine wires the pattern detector and forecast projector to storage.
// Detection runs and review actions share the pattern store; the store's
// locking discipline is SQLite's, not ours.
type Engine struct {
	storage  service.Storage
	detector *recurring.Detector
}

// New creates an engine around the given storage and detector.
func New(storage service.Storage, detector *recurring.Detector) (*Engine, error) {
	if storage == nil {
		return nil, errors.New("storage cannot be nil")
	}
	if detector == nil {
		return nil, errors.New("detector cannot be nil")
	}
	return &Engine{storage: storage, detector: detector}, nil
}

// DetectPatterns runs a detection batch for a tenant: it loads the
// tenant's transactions and existing patterns, clusters, reconciles, and
// persists created or updated patterns. Running it twice on unchanged
// data persists nothing the second time.
func (e *Engine) DetectPatterns(ctx context.Context, tenantID string) (*service.DetectionStats, error) {
	if tenantID == "" {
		return nil, errors.New("tenant ID cannot be empty")
	}
	start := time.Now()

	transactions, err := e.storage.GetTransactions(ctx, tenantID, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	existing, err := e.storage.GetPatterns(ctx, tenantID, service.PatternFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	results, err := e.detector.Detect(ctx, tenantID, transactions, existing)
	if err != nil {
		common.LogError(err, "detection run failed", common.Fields{
			"tenant":       tenantID,
			"transactions": len(transactions),
		})
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, pattern := range existing {
		known[pattern.ID] = true
	}

	stats := &service.DetectionStats{TransactionsSeen: len(transactions)}
	for i := range results {
		pattern := &results[i]
		if known[pattern.ID] {
			if err := e.storage.UpdatePattern(ctx, tenantID, pattern); err != nil {
				return nil, fmt.Errorf("failed to update pattern %s: %w", pattern.ID, err)
			}
			stats.PatternsUpdated++
			continue
		}
		if err := e.storage.SavePattern(ctx, tenantID, pattern); err != nil {
			return nil, fmt.Errorf("failed to save pattern %s: %w", pattern.ID, err)
		}
		stats.PatternsCreated++
	}

	stats.Duration = time.Since(start)
	common.LogInfo("detection run complete", common.Fields{
		"tenant":       tenantID,
		"transactions": stats.TransactionsSeen,
		"created":      stats.PatternsCreated,
		"updated":      stats.PatternsUpdated,
		"duration":     stats.Duration,
	})
	return stats, nil
}

// Forecast projects the tenant's eligible patterns over the requested
// range and aggregates them by month. The result carries the patterns
// the projection actually used.
func (e *Engine) Forecast(ctx context.Context, tenantID string, req service.ForecastRequest) (*service.ForecastResult, error) {
	if tenantID == "" {
		return nil, errors.New("tenant ID cannot be empty")
	}

	notIgnored := false
	patterns, err := e.storage.GetPatterns(ctx, tenantID, service.PatternFilter{Ignored: &notIgnored})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	entries, err := forecast.Project(patterns, req.From, req.To, req.IncludeIncome, req.IncludeCosts)
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool)
	var usedPatterns []model.RecurringPattern
	for _, entry := range entries {
		if used[entry.SourcePatternID] {
			continue
		}
		used[entry.SourcePatternID] = true
		for _, pattern := range patterns {
			if pattern.ID == entry.SourcePatternID {
				usedPatterns = append(usedPatterns, pattern)
				break
			}
		}
	}

	slog.Debug("forecast computed",
		"tenant", tenantID,
		"entries", len(entries),
		"patterns", len(usedPatterns))
	return &service.ForecastResult{
		Entries:  entries,
		Months:   forecast.AggregateMonthly(entries),
		Patterns: usedPatterns,
	}, nil
}

// ListPatterns returns the tenant's patterns matching the filter.
func (e *Engine) ListPatterns(ctx context.Context, tenantID string, filter service.PatternFilter) ([]model.RecurringPattern, error) {
	return e.storage.GetPatterns(ctx, tenantID, filter)
}

// ConfirmPattern records the user's confirmation of a pattern.
func (e *Engine) ConfirmPattern(ctx context.Context, tenantID, id string) error {
	return e.storage.ConfirmPattern(ctx, tenantID, id)
}

// IgnorePattern records the user's dismissal of a pattern.
func (e *Engine) IgnorePattern(ctx context.Context, tenantID, id string) error {
	return e.storage.IgnorePattern(ctx, tenantID, id)
}
