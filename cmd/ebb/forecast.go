package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ebbcast/ebb/internal/cli"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/ebbcast/ebb/internal/recurring"
	"github.com/ebbcast/ebb/internal/service"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project recurring patterns into a cash flow forecast",
		Long: `Project confirmed and high-confidence recurring patterns forward
over a date range, producing expected entries and monthly totals.

By default the forecast covers the next three months and includes both
income and costs.`,
		RunE: runForecast,
	}

	cmd.Flags().String("from", "", "Forecast start date (format: 2006-01-02, default: today)")
	cmd.Flags().String("to", "", "Forecast end date (format: 2006-01-02, default: from + 3 months)")
	cmd.Flags().Bool("income", true, "Include income patterns")
	cmd.Flags().Bool("costs", true, "Include cost patterns")
	cmd.Flags().StringP("format", "f", "table", "Output format (table, json, csv)")

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	req, err := buildForecastRequest(cmd)
	if err != nil {
		return err
	}

	eng, store, err := initEngine(ctx, recurring.DefaultWindowMonths)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := eng.Forecast(ctx, tenant, req)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	if len(result.Entries) == 0 {
		slog.Info("No forecastable patterns in range. Confirm patterns with 'ebb patterns confirm'.")
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "table":
		return renderForecastTable(result)
	case "json":
		return renderForecastJSON(result)
	case "csv":
		return renderForecastCSV(result)
	}
	return fmt.Errorf("invalid output format %q (expected table, json, or csv)", format)
}

func buildForecastRequest(cmd *cobra.Command) (service.ForecastRequest, error) {
	req := service.ForecastRequest{}

	if v, _ := cmd.Flags().GetString("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			return req, err
		}
		req.From = from
	} else {
		now := time.Now().UTC()
		req.From = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	if v, _ := cmd.Flags().GetString("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			return req, err
		}
		req.To = to
	} else {
		req.To = req.From.AddDate(0, 3, 0)
	}

	req.IncludeIncome, _ = cmd.Flags().GetBool("income")
	req.IncludeCosts, _ = cmd.Flags().GetBool("costs")

	return req, nil
}

func renderForecastTable(result *service.ForecastResult) error {
	fmt.Println(cli.FormatTitle("Cash flow forecast"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tCOUNTERPARTY\tAMOUNT")
	_, _ = fmt.Fprintln(w, "────\t────────────\t──────")

	for _, entry := range result.Entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			entry.Date.Format("2006-01-02"),
			cli.TruncateString(entry.CounterpartyName, 28),
			cli.FormatAmount(entry.ProjectedAmount))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	mw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(mw, "MONTH\tENTRIES\tNET TOTAL")
	_, _ = fmt.Fprintln(mw, "─────\t───────\t─────────")

	net := decimal.Zero
	for _, month := range result.Months {
		net = net.Add(month.Total)
		_, _ = fmt.Fprintf(mw, "%s\t%d\t%s\n",
			month.Month, month.Entries, cli.FormatAmount(month.Total))
	}
	if err := mw.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderBox("Totals", fmt.Sprintf("Net over range: %s\nPatterns used: %s",
		cli.FormatAmount(net),
		cli.BoldStyle.Render(fmt.Sprintf("%d", len(result.Patterns))))))

	return nil
}

type forecastDocument struct {
	Entries []model.ForecastEntry `json:"entries"`
	Months  []model.MonthlyTotal  `json:"months"`
}

func renderForecastJSON(result *service.ForecastResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(forecastDocument{
		Entries: result.Entries,
		Months:  result.Months,
	})
}

type forecastCSVRow struct {
	Date         string          `csv:"date"`
	Counterparty string          `csv:"counterparty"`
	Amount       decimal.Decimal `csv:"amount"`
	PatternID    string          `csv:"pattern_id"`
}

func renderForecastCSV(result *service.ForecastResult) error {
	rows := make([]forecastCSVRow, 0, len(result.Entries))
	for _, entry := range result.Entries {
		rows = append(rows, forecastCSVRow{
			Date:         entry.Date.Format("2006-01-02"),
			Counterparty: entry.CounterpartyName,
			Amount:       entry.ProjectedAmount,
			PatternID:    entry.SourcePatternID,
		})
	}
	return gocsv.Marshal(&rows, os.Stdout)
}
