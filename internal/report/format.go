package report

import (
	"fmt"
	"math"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatCapital formats a currency amount rounded to whole units, e.g.
// "12,345".
func FormatCapital(v float64) string {
	return FormatInt(int(math.Round(v)))
}

// FormatPercent formats a fraction as a signed percentage with one decimal,
// e.g. "+4.2%" or "-0.8%". Zero prints as "0.0%".
func FormatPercent(f float64) string {
	pct := f * 100
	if math.Abs(pct) < 0.05 {
		return "0.0%"
	}
	return fmt.Sprintf("%+.1f%%", pct)
}

// FormatRatio formats a dimensionless metric such as the Sharpe ratio.
func FormatRatio(r float64) string {
	return fmt.Sprintf("%.2f", r)
}

// FormatSymbols returns the joined symbols of a month, or "cash" when none
// were held.
func FormatSymbols(joined string) string {
	if joined == "" {
		return "cash"
	}
	return joined
}
