// Package importer reads bank transactions from CSV statements.
package importer

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ebbcast/ebb/internal/model"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// csvDate parses statement dates in ISO form.
type csvDate struct {
	time.Time
}

// UnmarshalCSV implements gocsv unmarshalling for dates.
func (d *csvDate) UnmarshalCSV(value string) error {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value, err)
	}
	d.Time = parsed
	return nil
}

// MarshalCSV implements gocsv marshalling for dates.
func (d csvDate) MarshalCSV() (string, error) {
	return d.Format("2006-01-02"), nil
}

// csvRecord is one row of an import file. Column names follow the
// export format of the statement converter feeding this tool.
type csvRecord struct {
	Date         csvDate         `csv:"date"`
	Counterparty string          `csv:"counterparty"`
	Account      string          `csv:"account"`
	Amount       decimal.Decimal `csv:"amount"`
	Description  string          `csv:"description"`
}

// ReadFile reads a CSV statement file into transactions for a tenant.
func ReadFile(path, tenantID string) ([]model.BankTransaction, error) {
	file, err := os.Open(path) // #nosec G304 -- user-supplied import path
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return Read(file, tenantID)
}

// Read parses CSV statement rows into transactions for a tenant. Every
// transaction gets a fresh ID and a content hash for deduplication;
// rows without date or counterparty are rejected.
func Read(r io.Reader, tenantID string) ([]model.BankTransaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID cannot be empty")
	}

	var records []csvRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	transactions := make([]model.BankTransaction, 0, len(records))
	for i, record := range records {
		if record.Date.IsZero() {
			return nil, fmt.Errorf("row %d: missing date", i+1)
		}
		if record.Counterparty == "" && record.Account == "" {
			return nil, fmt.Errorf("row %d: missing counterparty", i+1)
		}

		txn := model.BankTransaction{
			ID:                  uuid.New().String(),
			TenantID:            tenantID,
			Date:                record.Date.Time,
			CounterpartyName:    record.Counterparty,
			CounterpartyAccount: record.Account,
			Amount:              record.Amount,
			Description:         record.Description,
		}
		txn.Hash = txn.GenerateHash()
		transactions = append(transactions, txn)
	}
	return transactions, nil
}
