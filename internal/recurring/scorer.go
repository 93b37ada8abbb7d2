// Package recurring detects recurring-payment patterns in bank transactions.
package recurring

import (
	"math"
	"strings"
	"time"

	"github.com/ebbcast/ebb/internal/model"
	"github.com/shopspring/decimal"
)

// Scoring constants. Each rule contributes one point; a pair scoring at
// least LinkThreshold is considered linked.
const (
	MaxScore      = 3
	LinkThreshold = 2

	dayOfMonthTolerance = 3
)

// amountTolerance is the maximum relative difference for two amounts to
// count as matching.
var amountTolerance = decimal.RequireFromString("0.05")

// Interval bands, in days, for the recognized periods. The same bands
// drive both pairwise timing matches and frequency derivation.
const (
	monthlyMinDays   = 25
	monthlyMaxDays   = 35
	quarterlyMinDays = 80
	quarterlyMaxDays = 100
	annualMinDays    = 350
	annualMaxDays    = 380
)

// Score compares two transactions and returns an integer match score in
// [0, MaxScore]. The three rules are independent and additive:
// counterparty identity, amount proximity, and timing. Pure function.
func Score(a, b model.BankTransaction) int {
	score := 0
	if matchesCounterparty(a, b) {
		score++
	}
	if matchesAmount(a, b) {
		score++
	}
	if matchesTiming(a, b) {
		score++
	}
	return score
}

// matchesCounterparty checks name equality (case-insensitive) or account
// equality when both accounts are known.
func matchesCounterparty(a, b model.BankTransaction) bool {
	nameA := NormalizeCounterparty(a.CounterpartyName)
	nameB := NormalizeCounterparty(b.CounterpartyName)
	if nameA != "" && nameA == nameB {
		return true
	}
	return a.CounterpartyAccount != "" && a.CounterpartyAccount == b.CounterpartyAccount
}

// matchesAmount checks whether the two amounts are within the relative
// tolerance. When either amount is zero only exact equality matches.
func matchesAmount(a, b model.BankTransaction) bool {
	return amountsWithinTolerance(a.Amount, b.Amount)
}

// matchesTiming checks whether the two dates fall on the same day of
// month within tolerance, or are separated by a recognized period.
func matchesTiming(a, b model.BankTransaction) bool {
	if dayOfMonthDelta(a.Date, b.Date) <= dayOfMonthTolerance {
		return true
	}
	return frequencyForInterval(daysBetween(a.Date, b.Date)).Periodic()
}

// dayOfMonthDelta returns the circular distance between the days of
// month of two dates, so that the 31st and the 1st are 1 apart.
func dayOfMonthDelta(a, b time.Time) int {
	diff := a.Day() - b.Day()
	if diff < 0 {
		diff = -diff
	}
	if diff > 15 {
		diff = 31 - diff
	}
	return diff
}

// daysBetween returns the absolute whole-day distance between two dates.
func daysBetween(a, b time.Time) int {
	days := math.Round(b.Sub(a).Hours() / 24)
	return int(math.Abs(days))
}

// frequencyForInterval maps a day interval onto a frequency band.
// Intervals outside every band are irregular.
func frequencyForInterval(days int) model.Frequency {
	switch {
	case days >= monthlyMinDays && days <= monthlyMaxDays:
		return model.FrequencyMonthly
	case days >= quarterlyMinDays && days <= quarterlyMaxDays:
		return model.FrequencyQuarterly
	case days >= annualMinDays && days <= annualMaxDays:
		return model.FrequencyAnnual
	}
	return model.FrequencyIrregular
}

// NormalizeCounterparty canonicalizes a counterparty name for bucketing
// and comparison: lowercased with whitespace collapsed.
func NormalizeCounterparty(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
