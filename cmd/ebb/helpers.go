package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ebbcast/ebb/internal/common"
	"github.com/ebbcast/ebb/internal/config"
	"github.com/ebbcast/ebb/internal/engine"
	"github.com/ebbcast/ebb/internal/recurring"
	"github.com/ebbcast/ebb/internal/service"
	"github.com/ebbcast/ebb/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// requireTenant resolves the tenant from flags or config, erroring
// when neither is set. Every operation is tenant-scoped.
func requireTenant() (string, error) {
	tenant := config.Tenant()
	if tenant == "" {
		return "", common.NewUserError(
			"No tenant configured. Pass --tenant or set tenant in the config file",
			common.ErrMissingConfig)
	}
	return tenant, nil
}

// initEngine wires storage and the detector into an engine.
func initEngine(ctx context.Context, windowMonths int) (*engine.Engine, service.Storage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	detector, err := recurring.NewDetector(windowMonths)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	eng, err := engine.New(store, detector)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return eng, store, nil
}

// parseDate parses a YYYY-MM-DD flag value.
func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected format 2006-01-02): %w", value, err)
	}
	return t, nil
}
