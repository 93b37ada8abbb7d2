package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		want   string
	}{
		{
			name:   "negative amount keeps sign",
			amount: decimal.RequireFromString("-99.5"),
			want:   "-99.50",
		},
		{
			name:   "positive amount",
			amount: decimal.RequireFromString("2500"),
			want:   "2500.00",
		},
		{
			name:   "zero",
			amount: decimal.Zero,
			want:   "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Styles may add ANSI escapes depending on the terminal,
			// so only check the rendered text content.
			assert.Contains(t, FormatAmount(tt.amount), tt.want)
		})
	}
}

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "80%", FormatConfidence(0.8))
	assert.Equal(t, "100%", FormatConfidence(1.0))
	assert.Equal(t, "0%", FormatConfidence(0))
}

func TestFormatReviewState(t *testing.T) {
	assert.Contains(t, FormatReviewState(true, false), "confirmed")
	assert.Contains(t, FormatReviewState(false, true), "ignored")
	assert.Equal(t, "pending", FormatReviewState(false, false))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "a very ...", TruncateString("a very long counterparty", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}
