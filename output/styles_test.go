package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
)

func TestNewStyles(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	assert.NotZero(t, styles)
	assert.NotZero(t, styles.output)
}

func TestStylesPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	// A buffer is not a terminal, so every style is a no-op.
	assert.Equal(t, "Food › Groceries", styles.Category("Food › Groceries"))
	assert.Equal(t, "100.50 USD", styles.Amount("100.50 USD"))
	assert.Equal(t, "EXPENSE", styles.Keyword("EXPENSE"))
	assert.Equal(t, "#21", styles.Dim("#21"))
	assert.Equal(t, "5ms", styles.Timing("5ms", false))
}

func TestStylesSaldo(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf, termenv.WithProfile(termenv.ANSI))

	negative := styles.Saldo(decimal.RequireFromString("-12.50"), "-12.50 EUR")
	positive := styles.Saldo(decimal.RequireFromString("12.50"), "12.50 EUR")

	assert.Contains(t, negative, "-12.50 EUR")
	assert.Contains(t, positive, "12.50 EUR")
	assert.NotEqual(t, negative, "-12.50 EUR")
	assert.NotEqual(t, strings.Replace(negative, "-12.50", "12.50", 1), positive)

	// Zero stays unstyled.
	assert.Equal(t, "0.00", styles.Saldo(decimal.Zero, "0.00"))
}

func TestStylesTiming(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf, termenv.WithProfile(termenv.ANSI))

	fast := styles.Timing("5ms", false)
	slow := styles.Timing("500ms", true)

	assert.Contains(t, fast, "5ms")
	assert.Contains(t, slow, "500ms")
	assert.Equal(t, styles.Dim("5ms"), fast)
	assert.NotEqual(t, styles.Dim("500ms"), slow)
}
