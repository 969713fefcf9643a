package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/report"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// table is a plain text table. Column widths are measured in terminal cells
// so category names with wide runes stay aligned.
type table struct {
	header []string
	rows   [][]string
	// right marks right-aligned columns.
	right []bool
}

func newTable(header ...string) *table {
	right := make([]bool, len(header))
	for i := 1; i < len(right); i++ {
		right[i] = true
	}
	return &table{header: header, right: right}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func (t *table) pad(cell string, col, width int) string {
	if t.right[col] {
		return runewidth.FillLeft(cell, width)
	}
	return runewidth.FillRight(cell, width)
}

func (t *table) render(w io.Writer) {
	widths := t.widths()

	cells := make([]string, len(t.header))
	for i, h := range t.header {
		cells[i] = headerStyle.Render(t.pad(h, i, widths[i]))
	}
	_, _ = fmt.Fprintln(w, strings.Join(cells, "  "))

	for _, row := range t.rows {
		for i, cell := range row {
			cells[i] = t.pad(cell, i, widths[i])
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

// symbol returns the currency symbol, or #id when the book does not know it.
func symbol(book *ledger.Book, id ledger.CurrencyID) string {
	if c, ok := book.Currency(id); ok {
		return c.Symbol
	}
	return fmt.Sprintf("#%d", id)
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// rowLabel indents a category name by its level. Rows of a BOTH inclusion
// are indented relative to each other.
func rowLabel(h report.Header, baseLevel int) string {
	if h.Category == report.OtherCategory {
		return h.Name
	}
	return strings.Repeat("  ", max(h.Level-baseLevel, 0)) + h.Name
}

func minLevel(headers []report.Header) int {
	level := -1
	for _, h := range headers {
		if h.Category == report.OtherCategory {
			continue
		}
		if level < 0 || h.Level < level {
			level = h.Level
		}
	}
	return max(level, 0)
}

// renderReport writes rep as text tables, one per currency.
func renderReport(w io.Writer, rep *report.Report, book *ledger.Book) {
	title := fmt.Sprintf("%s (%s, %s..%s)", rep.Name, strings.ToLower(rep.Kind.String()), rep.Start, rep.End)
	_, _ = fmt.Fprintln(w, titleStyle.Render(title))

	switch rep.Kind {
	case report.KindFlow, report.KindValue:
		renderSeries(w, rep, book)
	case report.KindShare:
		renderShares(w, rep, book)
	}
}

func renderSeries(w io.Writer, rep *report.Report, book *ledger.Book) {
	headers := make([]report.Header, len(rep.Rows))
	for i, row := range rep.Rows {
		headers[i] = row.Header
	}
	base := minLevel(headers)

	for j, cur := range rep.Currencies {
		_, _ = fmt.Fprintln(w)

		columns := []string{symbol(book, cur)}
		for _, p := range rep.Periods {
			columns = append(columns, p.String())
		}
		t := newTable(columns...)

		for _, row := range rep.Rows {
			cells := []string{rowLabel(row.Header, base)}
			for _, point := range row.Series[j].Points {
				cells = append(cells, formatAmount(point.Value))
			}
			t.add(cells...)
		}
		t.render(w)
	}
}

func renderShares(w io.Writer, rep *report.Report, book *ledger.Book) {
	for _, series := range rep.Shares {
		_, _ = fmt.Fprintln(w)

		headers := make([]report.Header, len(series.Rows))
		for i, row := range series.Rows {
			headers[i] = row.Header
		}
		base := minLevel(headers)

		shareColumn := "%"
		if rep.ShareType == report.ShareValue {
			shareColumn = "share"
		}
		t := newTable(symbol(book, series.Currency), "value", shareColumn)
		for _, row := range series.Rows {
			t.add(rowLabel(row.Header, base), formatAmount(row.Value), formatAmount(row.Share))
		}
		t.add("total", formatAmount(series.Total), "")
		t.render(w)
	}
}
