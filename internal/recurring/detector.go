package recurring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ebbcast/ebb/internal/common"
	"github.com/ebbcast/ebb/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultWindowMonths bounds new detection to recent history when the
// caller does not choose a window.
const DefaultWindowMonths = 12

// ErrInvalidWindow is returned for a non-positive detection window.
var ErrInvalidWindow = fmt.Errorf("%w: window months must be positive", common.ErrInvalidInput)

// Detector clusters transactions into candidate recurring patterns.
type Detector struct {
	windowMonths int
}

// NewDetector creates a detector with the given window in months.
func NewDetector(windowMonths int) (*Detector, error) {
	if windowMonths <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, windowMonths)
	}
	return &Detector{windowMonths: windowMonths}, nil
}

// Detect finds recurring patterns in the tenant's transactions and
// reconciles them against existing patterns. It returns created or
// updated patterns only; running it twice on unchanged input returns
// nothing new on the second run. Confirmation is never set here.
func (d *Detector) Detect(_ context.Context, tenantID string, transactions []model.BankTransaction, existing []model.RecurringPattern) ([]model.RecurringPattern, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID cannot be empty")
	}
	for _, txn := range transactions {
		if txn.TenantID != tenantID {
			return nil, fmt.Errorf("transaction %s does not belong to tenant %s", txn.ID, tenantID)
		}
	}

	candidates := d.windowed(transactions)
	candidates = excludeClaimed(candidates, existing)
	if len(candidates) < 2 {
		return nil, nil
	}

	var results []model.RecurringPattern
	for _, cluster := range clusterTransactions(candidates) {
		derived := deriveCluster(tenantID, cluster)

		if matchesIgnored(derived, existing) {
			continue
		}

		if match := findMatch(derived, existing); match != nil {
			merged, changed := merge(*match, cluster)
			if changed {
				results = append(results, merged)
			}
			continue
		}

		derived.ID = uuid.New().String()
		results = append(results, derived)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CounterpartyName != results[j].CounterpartyName {
			return results[i].CounterpartyName < results[j].CounterpartyName
		}
		if !results[i].LastOccurrence.Equal(results[j].LastOccurrence) {
			return results[i].LastOccurrence.Before(results[j].LastOccurrence)
		}
		return results[i].AverageAmount.Cmp(results[j].AverageAmount) < 0
	})
	return results, nil
}

// windowed restricts input to transactions within the detection window,
// measured back from the most recent transaction date.
func (d *Detector) windowed(transactions []model.BankTransaction) []model.BankTransaction {
	if len(transactions) == 0 {
		return nil
	}

	var latest time.Time
	for _, txn := range transactions {
		if txn.Date.After(latest) {
			latest = txn.Date
		}
	}
	cutoff := latest.AddDate(0, -d.windowMonths, 0)

	var kept []model.BankTransaction
	for _, txn := range transactions {
		if !txn.Date.Before(cutoff) {
			kept = append(kept, txn)
		}
	}
	return kept
}

// excludeClaimed drops transactions already claimed by a confirmed
// pattern. Unconfirmed candidates do not claim their members.
func excludeClaimed(transactions []model.BankTransaction, existing []model.RecurringPattern) []model.BankTransaction {
	claimed := make(map[string]bool)
	for _, pattern := range existing {
		if !pattern.IsConfirmed {
			continue
		}
		for _, id := range pattern.SourceTransactionIDs() {
			claimed[id] = true
		}
	}

	var free []model.BankTransaction
	for _, txn := range transactions {
		if !claimed[txn.ID] {
			free = append(free, txn)
		}
	}
	return free
}

// clusterTransactions buckets transactions by normalized counterparty,
// scores pairs within each bucket, and unions linked pairs into
// clusters. Clusters smaller than two transactions are discarded.
func clusterTransactions(transactions []model.BankTransaction) [][]model.BankTransaction {
	buckets := make(map[string][]model.BankTransaction)
	var keys []string
	for _, txn := range transactions {
		key := bucketKey(txn)
		if key == "" {
			continue
		}
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], txn)
	}
	sort.Strings(keys)

	var clusters [][]model.BankTransaction
	for _, key := range keys {
		bucket := buckets[key]
		if len(bucket) < 2 {
			continue
		}

		uf := newUnionFind(len(bucket))
		for i := 0; i < len(bucket)-1; i++ {
			for j := i + 1; j < len(bucket); j++ {
				if Score(bucket[i], bucket[j]) >= LinkThreshold {
					uf.union(i, j)
				}
			}
		}

		for _, indices := range uf.components() {
			if len(indices) < 2 {
				continue
			}
			cluster := make([]model.BankTransaction, 0, len(indices))
			for _, idx := range indices {
				cluster = append(cluster, bucket[idx])
			}
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// bucketKey groups candidates so pairwise scoring stays bounded per
// counterparty. Transactions without name or account cannot form a
// recurring relationship and get no bucket.
func bucketKey(txn model.BankTransaction) string {
	if name := NormalizeCounterparty(txn.CounterpartyName); name != "" {
		return name
	}
	if txn.CounterpartyAccount != "" {
		return "acct:" + txn.CounterpartyAccount
	}
	return ""
}

// deriveCluster computes all derived pattern fields from a cluster's
// member transactions.
func deriveCluster(tenantID string, cluster []model.BankTransaction) model.RecurringPattern {
	sorted := make([]model.BankTransaction, len(cluster))
	copy(sorted, cluster)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	frequency := deriveFrequency(sorted)

	dayOfMonth := 0
	if frequency.Periodic() {
		dayOfMonth = typicalDayOfMonth(sorted)
	}

	amounts := make([]decimal.Decimal, 0, len(sorted))
	for _, txn := range sorted {
		amounts = append(amounts, txn.Amount)
	}

	perfect, total := 0, 0
	for i := 0; i < len(sorted)-1; i++ {
		for j := i + 1; j < len(sorted); j++ {
			total++
			if Score(sorted[i], sorted[j]) == MaxScore {
				perfect++
			}
		}
	}

	name, account := representativeCounterparty(sorted)

	pattern := model.RecurringPattern{
		TenantID:            tenantID,
		CounterpartyName:    name,
		CounterpartyAccount: account,
		Frequency:           frequency,
		DayOfMonth:          dayOfMonth,
		AverageAmount:       decimal.Avg(amounts[0], amounts[1:]...),
		ConfidenceScore:     confidenceScore(perfect, total, len(sorted)),
		LastOccurrence:      sorted[len(sorted)-1].Date,
		SourceTransactions:  sorted,
	}
	return pattern
}

// deriveFrequency classifies the median interval between consecutive
// occurrences into one of the recognized bands.
func deriveFrequency(sorted []model.BankTransaction) model.Frequency {
	if len(sorted) < 2 {
		return model.FrequencyIrregular
	}

	intervals := make([]int, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, daysBetween(sorted[i-1].Date, sorted[i].Date))
	}
	sort.Ints(intervals)

	median := intervals[len(intervals)/2]
	if len(intervals)%2 == 0 {
		median = (intervals[len(intervals)/2-1] + intervals[len(intervals)/2]) / 2
	}
	return frequencyForInterval(median)
}

// typicalDayOfMonth returns the mode of the member days of month. Ties
// are broken by closeness to the median day so near-boundary bookings
// settle on the central day.
func typicalDayOfMonth(sorted []model.BankTransaction) int {
	days := make([]int, 0, len(sorted))
	counts := make(map[int]int)
	for _, txn := range sorted {
		days = append(days, txn.Date.Day())
		counts[txn.Date.Day()]++
	}
	sort.Ints(days)
	median := days[len(days)/2]

	best, bestCount := 0, 0
	for _, day := range days {
		count := counts[day]
		if count > bestCount {
			best, bestCount = day, count
			continue
		}
		if count == bestCount && distance(day, median) < distance(best, median) {
			best = day
		}
	}
	return best
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// representativeCounterparty picks the name of the most recent member
// carrying one, and the first non-empty account.
func representativeCounterparty(sorted []model.BankTransaction) (name, account string) {
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].CounterpartyName != "" {
			name = sorted[i].CounterpartyName
			break
		}
	}
	for _, txn := range sorted {
		if txn.CounterpartyAccount != "" {
			account = txn.CounterpartyAccount
			break
		}
	}
	return name, account
}

// matchesIgnored reports whether the candidate's counterparty matches a
// pattern the user has dismissed. Such candidates are never re-surfaced.
func matchesIgnored(candidate model.RecurringPattern, existing []model.RecurringPattern) bool {
	name := NormalizeCounterparty(candidate.CounterpartyName)
	for i := range existing {
		if existing[i].IsIgnored && NormalizeCounterparty(existing[i].CounterpartyName) == name {
			return true
		}
	}
	return false
}

// findMatch locates a non-ignored existing pattern with the same
// counterparty, the same frequency, and an average amount within the
// scoring tolerance.
func findMatch(candidate model.RecurringPattern, existing []model.RecurringPattern) *model.RecurringPattern {
	name := NormalizeCounterparty(candidate.CounterpartyName)
	for i := range existing {
		pattern := &existing[i]
		if pattern.IsIgnored {
			continue
		}
		if NormalizeCounterparty(pattern.CounterpartyName) != name {
			continue
		}
		if pattern.Frequency != candidate.Frequency {
			continue
		}
		if amountsWithinTolerance(pattern.AverageAmount, candidate.AverageAmount) {
			return pattern
		}
	}
	return nil
}

// amountsWithinTolerance applies the scorer's relative amount tolerance
// to two stand-alone amounts.
func amountsWithinTolerance(a, b decimal.Decimal) bool {
	if a.IsZero() || b.IsZero() {
		return a.Equal(b)
	}
	diff := a.Sub(b).Abs()
	largest := decimal.Max(a.Abs(), b.Abs())
	return diff.Div(largest).Cmp(amountTolerance) <= 0
}

// merge unions the cluster's transactions into the existing pattern and
// re-derives every derived field from the combined set. The second
// return value reports whether membership actually grew.
func merge(existing model.RecurringPattern, cluster []model.BankTransaction) (model.RecurringPattern, bool) {
	combined := make([]model.BankTransaction, len(existing.SourceTransactions))
	copy(combined, existing.SourceTransactions)

	changed := false
	for _, txn := range cluster {
		if !existing.HasSourceTransaction(txn.ID) {
			combined = append(combined, txn)
			changed = true
		}
	}
	if !changed {
		return existing, false
	}

	derived := deriveCluster(existing.TenantID, combined)
	derived.ID = existing.ID
	derived.CreatedAt = existing.CreatedAt
	derived.IsConfirmed = existing.IsConfirmed
	derived.IsIgnored = existing.IsIgnored
	return derived, true
}
