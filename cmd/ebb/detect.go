package main

import (
	"fmt"
	"log/slog"

	"github.com/ebbcast/ebb/internal/cli"
	"github.com/ebbcast/ebb/internal/recurring"
	"github.com/spf13/cobra"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect recurring payment patterns",
		Long: `Scan stored transactions for recurring payment patterns.

Detection looks at counterparty, amount, and timing similarity within a
rolling window measured back from the most recent transaction. Running
detection repeatedly is safe: unchanged patterns are left alone, and new
occurrences are merged into existing patterns instead of duplicating them.`,
		RunE: runDetect,
	}

	cmd.Flags().Int("window-months", recurring.DefaultWindowMonths, "Detection window in months")

	return cmd
}

func runDetect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	windowMonths, _ := cmd.Flags().GetInt("window-months")

	eng, store, err := initEngine(ctx, windowMonths)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	slog.Info(cli.FormatTitle("Detecting recurring patterns"),
		"tenant", tenant, "window_months", windowMonths)

	stats, err := eng.DetectPatterns(ctx, tenant)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf(
		"Detection complete: %d patterns created, %d updated across %d transactions",
		stats.PatternsCreated, stats.PatternsUpdated, stats.TransactionsSeen)),
		"duration", stats.Duration)

	if stats.PatternsCreated > 0 || stats.PatternsUpdated > 0 {
		slog.Info("Review new patterns with: ebb patterns list")
	}

	return nil
}
