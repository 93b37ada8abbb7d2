package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testTransaction(id string, date time.Time, amount string) BankTransaction {
	return BankTransaction{
		ID:               id,
		TenantID:         "tenant-1",
		CounterpartyName: "Acme GmbH",
		Date:             date,
		Amount:           decimal.RequireFromString(amount),
	}
}

func TestRecurringPattern_Validate(t *testing.T) {
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	valid := RecurringPattern{
		ID:               "pat-1",
		TenantID:         "tenant-1",
		CounterpartyName: "Acme GmbH",
		Frequency:        FrequencyMonthly,
		DayOfMonth:       5,
		ConfidenceScore:  0.8,
		LastOccurrence:   feb,
		SourceTransactions: []BankTransaction{
			testTransaction("t1", jan, "-99.00"),
			testTransaction("t2", feb, "-99.00"),
		},
	}

	tests := []struct {
		mutate  func(*RecurringPattern)
		name    string
		wantErr bool
	}{
		{
			name:    "valid pattern",
			mutate:  func(*RecurringPattern) {},
			wantErr: false,
		},
		{
			name: "single source transaction",
			mutate: func(p *RecurringPattern) {
				p.SourceTransactions = p.SourceTransactions[:1]
			},
			wantErr: true,
		},
		{
			name: "confirmed and ignored",
			mutate: func(p *RecurringPattern) {
				p.IsConfirmed = true
				p.IsIgnored = true
			},
			wantErr: true,
		},
		{
			name: "unknown frequency",
			mutate: func(p *RecurringPattern) {
				p.Frequency = Frequency("fortnightly")
			},
			wantErr: true,
		},
		{
			name: "confidence above bounds",
			mutate: func(p *RecurringPattern) {
				p.ConfidenceScore = 1.2
			},
			wantErr: true,
		},
		{
			name: "periodic without day of month",
			mutate: func(p *RecurringPattern) {
				p.DayOfMonth = 0
			},
			wantErr: true,
		},
		{
			name: "irregular without day of month",
			mutate: func(p *RecurringPattern) {
				p.Frequency = FrequencyIrregular
				p.DayOfMonth = 0
			},
			wantErr: false,
		},
		{
			name: "missing tenant",
			mutate: func(p *RecurringPattern) {
				p.TenantID = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := valid
			pattern.SourceTransactions = append([]BankTransaction(nil), valid.SourceTransactions...)
			tt.mutate(&pattern)

			err := pattern.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFrequency_StepMonths(t *testing.T) {
	assert.Equal(t, 1, FrequencyMonthly.StepMonths())
	assert.Equal(t, 3, FrequencyQuarterly.StepMonths())
	assert.Equal(t, 12, FrequencyAnnual.StepMonths())
	assert.Equal(t, 0, FrequencyIrregular.StepMonths())
}

func TestRecurringPattern_HasSourceTransaction(t *testing.T) {
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	pattern := RecurringPattern{
		SourceTransactions: []BankTransaction{
			testTransaction("t1", jan, "-99.00"),
			testTransaction("t2", feb, "-99.00"),
		},
	}

	assert.True(t, pattern.HasSourceTransaction("t1"))
	assert.False(t, pattern.HasSourceTransaction("t3"))
	assert.Equal(t, []string{"t1", "t2"}, pattern.SourceTransactionIDs())
}
