// Package forecast projects recurring patterns into future cash-flow
// entries.
package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/ebbcast/ebb/internal/common"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/shopspring/decimal"
)

// ConfidenceThreshold is the minimum confidence for an unconfirmed
// pattern to be projected.
const ConfidenceThreshold = 0.7

// ErrInvalidDateRange is returned when the projection range ends before
// it starts.
var ErrInvalidDateRange = fmt.Errorf("%w: start date must be before end date", common.ErrInvalidInput)

// Project expands eligible patterns into dated future occurrences within
// [from, to]. Eligible means not ignored and either confirmed or above
// the confidence threshold; irregular patterns are never projected.
// includeIncome and includeCosts filter by the sign of the average
// amount. Output is ordered by month, then counterparty name.
func Project(patterns []model.RecurringPattern, from, to time.Time, includeIncome, includeCosts bool) ([]model.ForecastEntry, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange,
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	if !includeIncome && !includeCosts {
		return nil, nil
	}

	var entries []model.ForecastEntry
	for i := range patterns {
		pattern := &patterns[i]
		if !eligible(pattern) {
			continue
		}
		if pattern.IsIncome() && !includeIncome {
			continue
		}
		if !pattern.IsIncome() && !includeCosts {
			continue
		}
		entries = append(entries, occurrences(pattern, from, to)...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Month() != entries[j].Month() {
			return entries[i].Month() < entries[j].Month()
		}
		return entries[i].CounterpartyName < entries[j].CounterpartyName
	})
	return entries, nil
}

// eligible applies the projection gate. Patterns pending review stay in
// the review listing and are omitted here entirely.
func eligible(pattern *model.RecurringPattern) bool {
	if pattern.IsIgnored {
		return false
	}
	if !pattern.Frequency.Periodic() {
		return false
	}
	return pattern.IsConfirmed || pattern.ConfidenceScore > ConfidenceThreshold
}

// occurrences steps forward from the pattern's last occurrence by its
// canonical frequency step, emitting every occurrence inside [from, to].
// The first projected occurrence is one step after the last real one.
func occurrences(pattern *model.RecurringPattern, from, to time.Time) []model.ForecastEntry {
	stepMonths := pattern.Frequency.StepMonths()
	if stepMonths == 0 {
		return nil
	}

	anchorDay := pattern.DayOfMonth
	if anchorDay == 0 {
		anchorDay = pattern.LastOccurrence.Day()
	}

	var entries []model.ForecastEntry
	for step := 1; ; step++ {
		date := addMonthsClamped(pattern.LastOccurrence, step*stepMonths, anchorDay)
		if date.After(to) {
			break
		}
		if date.Before(from) {
			continue
		}
		entries = append(entries, model.ForecastEntry{
			Date:             date,
			CounterpartyName: pattern.CounterpartyName,
			ProjectedAmount:  pattern.AverageAmount,
			SourcePatternID:  pattern.ID,
		})
	}
	return entries
}

// addMonthsClamped advances a date by whole calendar months, pinning the
// result to the anchor day or the month's last day if shorter. Stepping
// is always computed from the original date so short months never cause
// drift.
func addMonthsClamped(base time.Time, months, anchorDay int) time.Time {
	year, month, _ := base.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, base.Location())

	day := anchorDay
	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return target.AddDate(0, 0, day-1)
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AggregateMonthly sums projected entries per calendar month. Input
// order is preserved month-wise; entries are expected sorted as returned
// by Project.
func AggregateMonthly(entries []model.ForecastEntry) []model.MonthlyTotal {
	var totals []model.MonthlyTotal
	index := make(map[string]int)

	for _, entry := range entries {
		month := entry.Month()
		i, seen := index[month]
		if !seen {
			index[month] = len(totals)
			totals = append(totals, model.MonthlyTotal{Month: month, Total: decimal.Zero})
			i = len(totals) - 1
		}
		totals[i].Total = totals[i].Total.Add(entry.ProjectedAmount)
		totals[i].Entries++
	}

	sort.Slice(totals, func(i, j int) bool { return totals[i].Month < totals[j].Month })
	return totals
}
