package dashboard

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatEuro formats a currency amount as "1,234.50 €".
func FormatEuro(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	whole := d.Truncate(0)
	frac := d.Sub(whole).Abs().StringFixed(2) // "0.xx"
	sign := ""
	if d.IsNegative() && whole.IsZero() {
		sign = "-"
	}
	return sign + humanize.Comma(whole.IntPart()) + frac[1:] + " €"
}

// FormatUnits formats a unit count as "1,234 unidades".
func FormatUnits(n int64) string {
	return humanize.Comma(n) + " unidades"
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	return humanize.Comma(n)
}

// FormatPrice formats a unit price with two decimals, or "-" for zero.
func FormatPrice(p decimal.Decimal) string {
	if p.IsZero() {
		return "-"
	}
	return p.StringFixed(2)
}

// FormatQty formats a quantity without trailing zeros.
func FormatQty(q decimal.Decimal) string {
	return q.String()
}

// FormatCompact formats an axis value with K/M/B suffixes.
func FormatCompact(v float64) string {
	a := v
	if a < 0 {
		a = -a
	}
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	case a == float64(int64(a)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

// FormatShare formats a fraction of a whole as a percentage, "" if zero.
func FormatShare(part, total float64) string {
	if total <= 0 || part <= 0 {
		return ""
	}
	pct := part / total * 100
	if pct >= 10 {
		return fmt.Sprintf("%.0f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}
