package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ebbcast/ebb/internal/cli"
	"github.com/ebbcast/ebb/internal/importer"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const importBatchSize = 100

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv> [file.csv...]",
		Short: "Import transactions from CSV files",
		Long: `Import bank transactions from CSV files into the local database.

Each row needs a date, a counterparty name or account, and an amount.
Transactions are deduplicated by content, so re-importing the same file
is safe.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "Parse files without saving to the database")
	_ = viper.BindPFlag("import.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tenant, err := requireTenant()
	if err != nil {
		return err
	}

	var transactions []model.BankTransaction
	for _, path := range args {
		parsed, err := importer.ReadFile(path, tenant)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		slog.Info("Parsed file", "path", path, "transactions", len(parsed))
		transactions = append(transactions, parsed...)
	}

	if len(transactions) == 0 {
		slog.Info("No transactions found in input files")
		return nil
	}

	if viper.GetBool("import.dry_run") {
		slog.Info(cli.FormatWarning("Dry run mode - not saving to database"))
		slog.Info("Would import", "tenant", tenant, "transactions", len(transactions))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := newImportProgressBar(len(transactions))

	saved := 0
	for start := 0; start < len(transactions); start += importBatchSize {
		end := start + importBatchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		n, err := store.SaveTransactions(ctx, tenant, transactions[start:end])
		if err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
		saved += n
		_ = bar.Add(end - start)
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf("Imported %d new transactions (%d duplicates skipped)",
		saved, len(transactions)-saved)))

	return nil
}

func newImportProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Importing transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
