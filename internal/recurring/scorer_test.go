package recurring

import (
	"testing"
	"time"

	"github.com/ebbcast/ebb/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func txn(name, account, amount string, date time.Time) model.BankTransaction {
	return model.BankTransaction{
		TenantID:            "tenant-1",
		CounterpartyName:    name,
		CounterpartyAccount: account,
		Amount:              decimal.RequireFromString(amount),
		Date:                date,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a    model.BankTransaction
		b    model.BankTransaction
		want int
	}{
		{
			name: "identical monthly payment scores max",
			a:    txn("Acme GmbH", "DE02100100100006820101", "-99.00", day(2024, 1, 5)),
			b:    txn("Acme GmbH", "DE02100100100006820101", "-99.00", day(2024, 2, 5)),
			want: 3,
		},
		{
			name: "case insensitive counterparty",
			a:    txn("ACME GMBH", "", "-99.00", day(2024, 1, 5)),
			b:    txn("acme gmbh", "", "-99.00", day(2024, 2, 5)),
			want: 3,
		},
		{
			name: "account match despite renamed counterparty",
			a:    txn("Acme GmbH", "DE02100100100006820101", "-99.00", day(2024, 1, 5)),
			b:    txn("Acme Payments", "DE02100100100006820101", "-99.00", day(2024, 2, 5)),
			want: 3,
		},
		{
			name: "amount within five percent",
			a:    txn("Acme GmbH", "", "-100.00", day(2024, 1, 5)),
			b:    txn("Acme GmbH", "", "-104.00", day(2024, 2, 5)),
			want: 3,
		},
		{
			name: "amount outside five percent",
			a:    txn("Acme GmbH", "", "-100.00", day(2024, 1, 5)),
			b:    txn("Acme GmbH", "", "-110.00", day(2024, 2, 5)),
			want: 2,
		},
		{
			name: "zero amount only matches zero",
			a:    txn("Acme GmbH", "", "0", day(2024, 1, 5)),
			b:    txn("Acme GmbH", "", "-0.01", day(2024, 2, 5)),
			want: 2,
		},
		{
			name: "both zero amounts match",
			a:    txn("Acme GmbH", "", "0", day(2024, 1, 5)),
			b:    txn("Acme GmbH", "", "0", day(2024, 2, 5)),
			want: 3,
		},
		{
			name: "day of month within tolerance",
			a:    txn("Acme GmbH", "", "-99.00", day(2024, 1, 5)),
			b:    txn("Acme GmbH", "", "-99.00", day(2024, 3, 7)),
			want: 3,
		},
		{
			name: "day of month wraps across month end",
			a:    txn("Acme GmbH", "", "-99.00", day(2024, 1, 31)),
			b:    txn("Acme GmbH", "", "-99.00", day(2024, 3, 1)),
			want: 3,
		},
		{
			name: "quarterly interval matches timing",
			a:    txn("Hosting AG", "", "-500.00", day(2024, 1, 15)),
			b:    txn("Hosting AG", "", "-500.00", day(2024, 4, 14)),
			want: 3,
		},
		{
			name: "annual interval matches timing",
			a:    txn("Insurance SE", "", "-1200.00", day(2023, 6, 20)),
			b:    txn("Insurance SE", "", "-1200.00", day(2024, 6, 20)),
			want: 3,
		},
		{
			name: "unrelated transactions",
			a:    txn("Acme GmbH", "", "-99.00", day(2024, 1, 5)),
			b:    txn("Grocery Store", "", "-17.43", day(2024, 1, 17)),
			want: 0,
		},
		{
			name: "missing account scores only name and amount rules",
			a:    txn("", "", "-99.00", day(2024, 1, 5)),
			b:    txn("", "", "-99.00", day(2024, 2, 5)),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.a, tt.b))
			assert.Equal(t, tt.want, Score(tt.b, tt.a), "score must be symmetric")
		})
	}
}

func TestNormalizeCounterparty(t *testing.T) {
	assert.Equal(t, "acme gmbh", NormalizeCounterparty("  Acme   GmbH "))
	assert.Equal(t, "", NormalizeCounterparty("   "))
}

func TestFrequencyForInterval(t *testing.T) {
	tests := []struct {
		want model.Frequency
		days int
	}{
		{model.FrequencyMonthly, 25},
		{model.FrequencyMonthly, 30},
		{model.FrequencyMonthly, 35},
		{model.FrequencyIrregular, 36},
		{model.FrequencyQuarterly, 91},
		{model.FrequencyIrregular, 101},
		{model.FrequencyAnnual, 365},
		{model.FrequencyIrregular, 381},
		{model.FrequencyIrregular, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, frequencyForInterval(tt.days), "days=%d", tt.days)
	}
}
