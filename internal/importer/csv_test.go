package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,counterparty,account,amount,description
2024-01-05,Acme GmbH,DE02100100100006820101,-99.00,Monthly subscription
2024-01-28,Client Ltd,,2500.00,Invoice 2024-003
`

func TestRead(t *testing.T) {
	transactions, err := Read(strings.NewReader(sampleCSV), "tenant-1")
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	first := transactions[0]
	assert.Equal(t, "tenant-1", first.TenantID)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "Acme GmbH", first.CounterpartyName)
	assert.Equal(t, "DE02100100100006820101", first.CounterpartyAccount)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-99.00")))
	assert.Equal(t, "Monthly subscription", first.Description)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, first.Hash)

	second := transactions[1]
	assert.Empty(t, second.CounterpartyAccount)
	assert.True(t, second.Amount.IsPositive())

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestRead_SameContentSameHash(t *testing.T) {
	a, err := Read(strings.NewReader(sampleCSV), "tenant-1")
	require.NoError(t, err)
	b, err := Read(strings.NewReader(sampleCSV), "tenant-1")
	require.NoError(t, err)

	// IDs are fresh per import, hashes identify content.
	assert.NotEqual(t, a[0].ID, b[0].ID)
	assert.Equal(t, a[0].Hash, b[0].Hash)
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		tenant string
	}{
		{
			name:   "empty tenant",
			input:  sampleCSV,
			tenant: "",
		},
		{
			name:   "bad date",
			input:  "date,counterparty,account,amount,description\n05.01.2024,Acme,,-1.00,x\n",
			tenant: "tenant-1",
		},
		{
			name:   "missing counterparty and account",
			input:  "date,counterparty,account,amount,description\n2024-01-05,,,-1.00,x\n",
			tenant: "tenant-1",
		},
		{
			name:   "bad amount",
			input:  "date,counterparty,account,amount,description\n2024-01-05,Acme,,ninety,x\n",
			tenant: "tenant-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), tt.tenant)
			assert.Error(t, err)
		})
	}
}
