package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ebbcast/ebb/internal/cli"
	"github.com/ebbcast/ebb/internal/engine"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/ebbcast/ebb/internal/recurring"
	"github.com/ebbcast/ebb/internal/service"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Review detected recurring patterns",
		Long: `List, confirm, or ignore detected recurring payment patterns.

Confirmed patterns are always included in forecasts regardless of their
confidence score. Ignored patterns are excluded from forecasts and will
not be resurfaced by future detection runs.`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsConfirmCmd())
	cmd.AddCommand(patternsIgnoreCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List detected patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tenant, err := requireTenant()
			if err != nil {
				return err
			}

			eng, store, err := initEngine(ctx, recurring.DefaultWindowMonths)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.PatternFilter{}
			if confirmed, _ := cmd.Flags().GetBool("confirmed"); confirmed {
				v := true
				filter.Confirmed = &v
			}
			if pending, _ := cmd.Flags().GetBool("pending"); pending {
				v := false
				filter.Confirmed = &v
				filter.Ignored = &v
			}
			if showIgnored, _ := cmd.Flags().GetBool("ignored"); !showIgnored && filter.Ignored == nil {
				v := false
				filter.Ignored = &v
			}

			patterns, err := eng.ListPatterns(ctx, tenant, filter)
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			if len(patterns) == 0 {
				slog.Info("No patterns found. Run 'ebb detect' first.")
				return nil
			}

			fmt.Println(cli.TitleStyle.Render(cli.RepeatIcon + " Recurring patterns"))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCOUNTERPARTY\tFREQUENCY\tDAY\tAVG AMOUNT\tCONFIDENCE\tOCCURRENCES\tSTATE")
			_, _ = fmt.Fprintln(w, "──\t────────────\t─────────\t───\t──────────\t──────────\t───────────\t─────")

			for _, p := range patterns {
				day := "-"
				if p.DayOfMonth > 0 {
					day = fmt.Sprintf("%d", p.DayOfMonth)
				}

				idPrefix := p.ID
				if len(idPrefix) > 8 {
					idPrefix = idPrefix[:8]
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					idPrefix,
					cli.TruncateString(p.CounterpartyName, 28),
					p.Frequency,
					day,
					cli.FormatAmount(p.AverageAmount),
					cli.FormatConfidence(p.ConfidenceScore),
					len(p.SourceTransactions),
					cli.FormatReviewState(p.IsConfirmed, p.IsIgnored))
			}

			return w.Flush()
		},
	}

	cmd.Flags().Bool("confirmed", false, "Show only confirmed patterns")
	cmd.Flags().Bool("pending", false, "Show only patterns awaiting review")
	cmd.Flags().Bool("ignored", false, "Include ignored patterns")

	return cmd
}

func patternsConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <pattern-id>",
		Short: "Confirm a pattern as a real recurring payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPatternState(cmd, args[0], "confirm")
		},
	}
}

func patternsIgnoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <pattern-id>",
		Short: "Ignore a pattern and exclude it from forecasts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPatternState(cmd, args[0], "ignore")
		},
	}
}

func setPatternState(cmd *cobra.Command, id, action string) error {
	ctx := cmd.Context()

	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	eng, store, err := initEngine(ctx, recurring.DefaultWindowMonths)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pattern, err := resolvePattern(ctx, eng, tenant, id)
	if err != nil {
		return err
	}

	var done string
	switch action {
	case "confirm":
		err = eng.ConfirmPattern(ctx, tenant, pattern.ID)
		done = "confirmed"
	case "ignore":
		err = eng.IgnorePattern(ctx, tenant, pattern.ID)
		done = "ignored"
	}
	if err != nil {
		return fmt.Errorf("failed to %s pattern: %w", action, err)
	}

	slog.Info(cli.FormatSuccess("Pattern "+done),
		"counterparty", pattern.CounterpartyName, "id", pattern.ID)

	return nil
}

// resolvePattern finds a pattern by full ID or unique ID prefix.
func resolvePattern(ctx context.Context, eng *engine.Engine, tenant, id string) (*model.RecurringPattern, error) {
	patterns, err := eng.ListPatterns(ctx, tenant, service.PatternFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	var match *model.RecurringPattern
	for i := range patterns {
		if patterns[i].ID == id {
			return &patterns[i], nil
		}
		if strings.HasPrefix(patterns[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("pattern ID prefix %q is ambiguous", id)
			}
			match = &patterns[i]
		}
	}

	if match == nil {
		return nil, fmt.Errorf("no pattern with ID %q", id)
	}
	return match, nil
}
