package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a monetary amount with two decimals, colored by
// sign. Positive amounts are income, negative amounts are costs.
func FormatAmount(amount decimal.Decimal) string {
	return StyleAmount(amount.StringFixed(2), amount.IsPositive())
}

// FormatConfidence renders a confidence score as a percentage.
func FormatConfidence(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

// FormatReviewState renders the review state of a pattern.
func FormatReviewState(confirmed, ignored bool) string {
	switch {
	case confirmed:
		return SuccessStyle.Render("confirmed")
	case ignored:
		return SubtleStyle.Render("ignored")
	}
	return "pending"
}

// TruncateString shortens a string to maxLen runes, appending an
// ellipsis when truncation occurs.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
