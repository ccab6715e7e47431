package util

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders an amount as a display string like "$1,234.56".
// Negative amounts come out as "$-1,234.56", matching how balances are
// shown elsewhere in the app.
func FormatUSD(amount float64) string {
	fixed := decimal.NewFromFloat(amount).StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	parts := strings.SplitN(fixed, ".", 2)
	grouped := groupThousands(parts[0])

	var b strings.Builder
	b.WriteString("$")
	if neg {
		b.WriteString("-")
	}
	b.WriteString(grouped)
	b.WriteString(".")
	b.WriteString(parts[1])
	return b.String()
}

// FormatBalance renders a nullable balance, using "N/A" when absent.
func FormatBalance(amount *float64) string {
	if amount == nil {
		return "N/A"
	}
	return FormatUSD(*amount)
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
