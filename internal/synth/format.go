package synth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fmtUSD formats a dollar amount with comma separators and no decimals
// (e.g. 46875.4 → "$46,875").
func fmtUSD(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "n/a"
	}
	v := int64(math.Round(n))
	if v < 0 {
		return "-$" + groupDigits(-v)
	}
	return "$" + groupDigits(v)
}

// fmtCount formats a non-monetary quantity with thousands separators.
func fmtCount(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "n/a"
	}
	v := int64(math.Round(n))
	if v < 0 {
		return "-" + groupDigits(-v)
	}
	return groupDigits(v)
}

func groupDigits(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	rem := len(s) % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// fmtPct renders a fraction as a percentage with at most one decimal place,
// dropping the decimal when it would be zero (0.15 → "15%", 0.035 → "3.5%").
func fmtPct(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	p := math.Round(f*1000) / 10
	if p == math.Trunc(p) {
		return fmt.Sprintf("%.0f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

// fmtSignedPct is fmtPct with an explicit sign for changes.
func fmtSignedPct(f float64) string {
	if f > 0 {
		return "+" + fmtPct(f)
	}
	return fmtPct(f)
}

func fmtMonths(m float64) string {
	m = math.Round(m*10) / 10
	if m == 1 {
		return "1 month"
	}
	if m == math.Trunc(m) {
		return fmt.Sprintf("%.0f months", m)
	}
	return fmt.Sprintf("%.1f months", m)
}

func fmtHours(h float64) string {
	return fmt.Sprintf("%s hours", fmtCount(h))
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// sanitizeCell prepares text for a markdown table cell.
func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitize(s), "|", "\\|")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
