package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFmtUSD(t *testing.T) {
	cases := map[float64]string{
		0:          "$0",
		5:          "$5",
		999.5:      "$1,000",
		46875.4:    "$46,875",
		1234567:    "$1,234,567",
		-5:         "-$5",
		-12345.6:   "-$12,346",
		math.NaN(): "n/a",
	}
	for in, want := range cases {
		assert.Equal(t, want, fmtUSD(in), "%v", in)
	}
	assert.Equal(t, "n/a", fmtUSD(math.Inf(1)))
}

func TestFmtPct(t *testing.T) {
	cases := map[float64]string{
		0.15:   "15%",
		0.035:  "3.5%",
		0.875:  "87.5%",
		0.0812: "8.1%",
		1:      "100%",
		-0.4:   "-40%",
	}
	for in, want := range cases {
		assert.Equal(t, want, fmtPct(in), "%v", in)
	}
	assert.Equal(t, "+25%", fmtSignedPct(0.25))
	assert.Equal(t, "-40%", fmtSignedPct(-0.4))
	assert.Equal(t, "0%", fmtSignedPct(0))
}

func TestFmtMonthsAndCounts(t *testing.T) {
	assert.Equal(t, "8 months", fmtMonths(8))
	assert.Equal(t, "4.8 months", fmtMonths(4.8))
	assert.Equal(t, "3.2 months", fmtMonths(8-4.8))
	assert.Equal(t, "1 month", fmtMonths(1.01))
	assert.Equal(t, "1,234", fmtCount(1234.4))
	assert.Equal(t, "-1,000", fmtCount(-1000))
	assert.Equal(t, "554 hours", fmtHours(554.24))
}

func TestSanitizeCell(t *testing.T) {
	assert.Equal(t, `a \| b c`, sanitizeCell(" a | b\nc "))
	assert.Equal(t, "—", orDash("  "))
}
