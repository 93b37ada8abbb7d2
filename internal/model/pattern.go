package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency describes the cadence of a recurring pattern.
type Frequency string

// Frequency constants.
const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
	FrequencyIrregular Frequency = "irregular"
)

// Valid reports whether the frequency is one of the known values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual, FrequencyIrregular:
		return true
	}
	return false
}

// Periodic reports whether the frequency has a determinate cadence.
func (f Frequency) Periodic() bool {
	return f.Valid() && f != FrequencyIrregular
}

// StepMonths returns the calendar-month step between occurrences,
// or 0 for irregular patterns.
func (f Frequency) StepMonths() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyAnnual:
		return 12
	}
	return 0
}

// RecurringPattern is a detected cluster of transactions believed to
// represent a repeating payment relationship. AverageAmount, DayOfMonth
// and LastOccurrence are always derived from SourceTransactions and are
// never edited independently of that set.
type RecurringPattern struct {
	LastOccurrence      time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ID                  string
	TenantID            string
	CounterpartyName    string
	CounterpartyAccount string
	Frequency           Frequency
	SourceTransactions  []BankTransaction
	AverageAmount       decimal.Decimal
	ConfidenceScore     float64
	DayOfMonth          int // 0 when no typical day applies
	IsConfirmed         bool
	IsIgnored           bool
}

// Pattern validation errors.
var (
	ErrPatternTooFewSources       = fmt.Errorf("pattern needs at least 2 source transactions")
	ErrPatternConfirmedAndIgnored = fmt.Errorf("pattern cannot be both confirmed and ignored")
)

// Validate checks the pattern invariants.
func (p *RecurringPattern) Validate() error {
	if p.TenantID == "" {
		return fmt.Errorf("invalid pattern: missing tenant ID")
	}
	if p.CounterpartyName == "" {
		return fmt.Errorf("invalid pattern: missing counterparty name")
	}
	if len(p.SourceTransactions) < 2 {
		return ErrPatternTooFewSources
	}
	if p.IsConfirmed && p.IsIgnored {
		return ErrPatternConfirmedAndIgnored
	}
	if !p.Frequency.Valid() {
		return fmt.Errorf("invalid pattern: unknown frequency %q", p.Frequency)
	}
	if p.ConfidenceScore < 0 || p.ConfidenceScore > 1 {
		return fmt.Errorf("invalid pattern: confidence must be between 0 and 1")
	}
	if p.Frequency.Periodic() && (p.DayOfMonth < 1 || p.DayOfMonth > 31) {
		return fmt.Errorf("invalid pattern: day of month %d out of range", p.DayOfMonth)
	}
	return nil
}

// IsIncome reports whether the pattern represents incoming payments.
func (p *RecurringPattern) IsIncome() bool {
	return p.AverageAmount.IsPositive()
}

// SourceTransactionIDs returns the IDs of the pattern's source transactions.
func (p *RecurringPattern) SourceTransactionIDs() []string {
	ids := make([]string, 0, len(p.SourceTransactions))
	for _, txn := range p.SourceTransactions {
		ids = append(ids, txn.ID)
	}
	return ids
}

// HasSourceTransaction reports whether the pattern already claims the
// given transaction.
func (p *RecurringPattern) HasSourceTransaction(txnID string) bool {
	for _, txn := range p.SourceTransactions {
		if txn.ID == txnID {
			return true
		}
	}
	return false
}
