package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastEntry is a single projected future occurrence of a recurring
// pattern. Entries are computed fresh per forecast request and never
// persisted.
type ForecastEntry struct {
	Date             time.Time       `json:"date"` // projected occurrence date
	CounterpartyName string          `json:"counterparty_name"`
	SourcePatternID  string          `json:"source_pattern_id"`
	ProjectedAmount  decimal.Decimal `json:"projected_amount"`
}

// Month returns the entry's year-month key in "2006-01" form.
func (e ForecastEntry) Month() string {
	return e.Date.Format("2006-01")
}

// MonthlyTotal aggregates forecast entries that share a calendar month.
type MonthlyTotal struct {
	Month   string          `json:"month"` // "2006-01"
	Total   decimal.Decimal `json:"total"`
	Entries int             `json:"entries"`
}
