package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ebbcast/ebb/internal/model"
	"github.com/ebbcast/ebb/internal/recurring"
	"github.com/ebbcast/ebb/internal/service"
	"github.com/ebbcast/ebb/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, service.Storage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	detector, err := recurring.NewDetector(recurring.DefaultWindowMonths)
	require.NoError(t, err)

	engine, err := New(store, detector)
	require.NoError(t, err)
	return engine, store
}

func monthlyAcme(id string, date time.Time) model.BankTransaction {
	txn := model.BankTransaction{
		ID:               id,
		TenantID:         "tenant-1",
		Date:             date,
		CounterpartyName: "Acme GmbH",
		Amount:           decimal.RequireFromString("-99.00"),
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func seedMonthly(t *testing.T, store service.Storage) {
	t.Helper()
	_, err := store.SaveTransactions(context.Background(), "tenant-1", []model.BankTransaction{
		monthlyAcme("t1", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		monthlyAcme("t2", time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC)),
		monthlyAcme("t3", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
}

func TestDetectPatterns_EndToEnd(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	seedMonthly(t, store)

	stats, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TransactionsSeen)
	assert.Equal(t, 1, stats.PatternsCreated)
	assert.Equal(t, 0, stats.PatternsUpdated)

	patterns, err := engine.ListPatterns(ctx, "tenant-1", service.PatternFilter{})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, model.FrequencyMonthly, patterns[0].Frequency)
	assert.Greater(t, patterns[0].ConfidenceScore, 0.7)
	assert.Len(t, patterns[0].SourceTransactions, 3)
}

func TestDetectPatterns_Idempotent(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	seedMonthly(t, store)

	_, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)

	stats, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PatternsCreated)
	assert.Equal(t, 0, stats.PatternsUpdated)

	patterns, err := engine.ListPatterns(ctx, "tenant-1", service.PatternFilter{})
	require.NoError(t, err)
	assert.Len(t, patterns, 1, "rerun must not duplicate patterns")
}

func TestDetectPatterns_AttachesNewOccurrences(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	seedMonthly(t, store)

	_, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)

	_, err = store.SaveTransactions(ctx, "tenant-1", []model.BankTransaction{
		monthlyAcme("t4", time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	stats, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PatternsCreated)
	assert.Equal(t, 1, stats.PatternsUpdated)

	patterns, err := engine.ListPatterns(ctx, "tenant-1", service.PatternFilter{})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Len(t, patterns[0].SourceTransactions, 4)
}

func TestDetectPatterns_RespectsIgnoredPatterns(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	seedMonthly(t, store)

	_, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)

	patterns, err := engine.ListPatterns(ctx, "tenant-1", service.PatternFilter{})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	require.NoError(t, engine.IgnorePattern(ctx, "tenant-1", patterns[0].ID))

	// New occurrences of the dismissed counterparty must not resurface.
	_, err = store.SaveTransactions(ctx, "tenant-1", []model.BankTransaction{
		monthlyAcme("t4", time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	stats, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PatternsCreated)
	assert.Equal(t, 0, stats.PatternsUpdated)
}

func TestForecast_EndToEnd(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	seedMonthly(t, store)

	_, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)

	result, err := engine.Forecast(ctx, "tenant-1", service.ForecastRequest{
		From:          time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		To:            time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		IncludeIncome: true,
		IncludeCosts:  true,
	})
	require.NoError(t, err)

	// Last occurrence 2024-03-06, typical day 5: April, May, June.
	require.Len(t, result.Entries, 3)
	assert.Equal(t, "2024-04", result.Entries[0].Month())
	assert.Equal(t, "2024-06", result.Entries[2].Month())

	require.Len(t, result.Months, 3)
	assert.True(t, result.Months[0].Total.Equal(decimal.RequireFromString("-99.00")))

	require.Len(t, result.Patterns, 1)
	assert.Equal(t, result.Entries[0].SourcePatternID, result.Patterns[0].ID)
}

func TestForecast_InvalidRange(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.Forecast(ctx, "tenant-1", service.ForecastRequest{
		From:          time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IncludeIncome: true,
		IncludeCosts:  true,
	})
	assert.Error(t, err)
}

func TestForecast_IgnoredPatternsExcluded(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	seedMonthly(t, store)

	_, err := engine.DetectPatterns(ctx, "tenant-1")
	require.NoError(t, err)

	patterns, err := engine.ListPatterns(ctx, "tenant-1", service.PatternFilter{})
	require.NoError(t, err)
	require.NoError(t, engine.IgnorePattern(ctx, "tenant-1", patterns[0].ID))

	result, err := engine.Forecast(ctx, "tenant-1", service.ForecastRequest{
		From:          time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		To:            time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		IncludeIncome: true,
		IncludeCosts:  true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Empty(t, result.Patterns)
}
