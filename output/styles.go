// Package output provides styling helpers for terminal output.
package output

import (
	"io"

	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
)

// Styles styles category trees, amounts and timings for one writer. Colors
// are dropped when the writer is not a terminal.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates a new Styles instance for the given writer. Options are
// passed to termenv, e.g. to force a color profile.
func NewStyles(w io.Writer, opts ...termenv.OutputOption) *Styles {
	return &Styles{
		output: termenv.NewOutput(w, opts...),
	}
}

// Category returns a styled category name (yellow).
func (s *Styles) Category(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("3")).
		String()
}

// Amount returns a styled amount or rate (magenta).
func (s *Styles) Amount(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("5")).
		String()
}

// Saldo returns text colored by the sign of value: red when negative, green
// when positive and unstyled when zero.
func (s *Styles) Saldo(value decimal.Decimal, text string) string {
	switch value.Sign() {
	case -1:
		return s.output.String(text).Foreground(s.output.Color("1")).String()
	case 1:
		return s.output.String(text).Foreground(s.output.Color("2")).String()
	}
	return text
}

// Keyword returns a styled keyword (bold), used for category types and
// timer names.
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).
		Bold().
		String()
}

// Dim returns dimmed text (for ids and tree branches).
func (s *Styles) Dim(text string) string {
	return s.output.String(text).
		Faint().
		String()
}

// Timing returns a styled timing string. Slow operations are red, all
// others dimmed.
func (s *Styles) Timing(text string, isSlowOperation bool) string {
	if isSlowOperation {
		return s.output.String(text).
			Foreground(s.output.Color("1")).
			String()
	}
	return s.Dim(text)
}
