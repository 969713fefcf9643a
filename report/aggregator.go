// Package report shapes ledger totals into flow, value and share reports over
// a category hierarchy and a time axis, and bounds the recent-transactions
// window used by dashboards.
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/telemetry"
)

var hundred = decimal.NewFromInt(100)

// OtherCategory is the id of the row that collects categories beyond
// MaxCategoriesValuesCount in share reports.
const OtherCategory ledger.CategoryID = 0

// Header identifies a report row.
type Header struct {
	Category  ledger.CategoryID   `json:"category"`
	Name      string              `json:"name"`
	Type      ledger.CategoryType `json:"type"`
	Level     int                 `json:"level"`
	Inclusion InclusionType       `json:"inclusion"`
}

// Point is one period of a flow or value series. Income is the sum of
// non-negative values and Expense the absolute sum of negative ones. For flow
// reports Value is Income minus Expense; for value reports it is the running
// balance at the end of the period.
type Point struct {
	Period
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Value   decimal.Decimal `json:"value"`
}

// Series holds one currency's points for a row.
type Series struct {
	Currency ledger.CurrencyID `json:"currency"`
	Points   []Point           `json:"points"`
}

// Row is a flow or value report row.
type Row struct {
	Header
	Series []Series `json:"series"`
}

// ShareRow is one category's total and share of a share series.
type ShareRow struct {
	Header
	Value decimal.Decimal `json:"value"`
	// Share is the percentage of the series total, or equal to Value when
	// the report's share type is VALUE.
	Share decimal.Decimal `json:"share"`
}

// ShareSeries is a share report for one currency.
type ShareSeries struct {
	Currency ledger.CurrencyID `json:"currency"`
	Total    decimal.Decimal   `json:"total"`
	Rows     []ShareRow        `json:"rows"`
}

// Report is the result of generating a definition. It is a plain value and
// safe to share once returned.
type Report struct {
	Name      string         `json:"name"`
	Kind      Kind           `json:"kind"`
	ViewType  ViewType       `json:"view"`
	ShareType ShareType      `json:"share_type"`
	Start     ledger.Date    `json:"start"`
	End       ledger.Date    `json:"end"`
	Division  PeriodDivision `json:"division"`
	// Converted is false under SHOW_ALL_CURRENCIES, in which case every
	// currency forms its own series.
	Converted  bool                `json:"converted"`
	Currencies []ledger.CurrencyID `json:"currencies"`
	Periods    Periods             `json:"periods,omitempty"`
	Rows       []Row               `json:"rows,omitempty"`
	Shares     []ShareSeries       `json:"shares,omitempty"`
}

// Aggregator generates reports from a calculator.
type Aggregator struct {
	calc *ledger.Calculator
}

// NewAggregator creates an aggregator over calc.
func NewAggregator(calc *ledger.Calculator) *Aggregator {
	return &Aggregator{calc: calc}
}

// line is a resolved report row: its header and the categories it sums.
type line struct {
	header Header
	key    ledger.SortKey
	scope  ledger.Scope
}

// Generate computes def as of today. Either the whole report is returned or
// an error; partial reports are never produced.
func (a *Aggregator) Generate(ctx context.Context, def Definition, today ledger.Date) (*Report, error) {
	ctx, timer := telemetry.StartTimer(ctx, fmt.Sprintf("report %q", def.Name))
	defer timer.End()

	if err := def.Validate(); err != nil {
		return nil, err
	}
	start, end, err := def.PeriodType.Range(today, def.PeriodStart, def.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("report %q: %w", def.Name, err)
	}

	lines, union, err := a.resolveLines(def.Categories)
	if err != nil {
		return nil, fmt.Errorf("report %q: %w", def.Name, err)
	}

	rep := &Report{
		Name:      def.Name,
		Kind:      def.Kind,
		ViewType:  def.ViewType,
		ShareType: def.ShareType,
		Start:     start,
		End:       end,
		Division:  def.PeriodDivision,
	}

	q := a.calc.Query(union, start, end, today)
	if def.Currency != 0 {
		q.TargetCurrency = def.Currency
	}

	switch def.Kind {
	case KindFlow:
		rep.Periods = Divide(start, end, def.PeriodDivision)
		q.Buckets = rep.Periods
		totals, err := a.calc.Calculate(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("report %q: %w", def.Name, err)
		}
		rep.setCurrencies(totals)
		rep.Rows = flowRows(lines, rep.Periods, rep.Currencies, totals)

	case KindValue:
		rep.Periods = Divide(start, end, def.PeriodDivision)
		q.Start = ledger.Date{}
		q.Buckets = withOpening{rep.Periods}
		totals, err := a.calc.Calculate(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("report %q: %w", def.Name, err)
		}
		rep.setCurrencies(totals)
		rep.Rows = valueRows(lines, rep.Periods, rep.Currencies, totals)

	case KindShare:
		totals, err := a.calc.Calculate(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("report %q: %w", def.Name, err)
		}
		rep.setCurrencies(totals)
		rep.Shares = shareSeries(lines, rep.Currencies, totals, def.ShareType, def.MaxCategoriesValuesCount)
	}

	return rep, nil
}

func (r *Report) setCurrencies(totals *ledger.Totals) {
	r.Converted = totals.Converted
	if totals.Converted {
		r.Currencies = []ledger.CurrencyID{totals.Target}
		return
	}
	r.Currencies = totals.Currencies()
}

// resolveLines expands category options into rows sorted by SortKey and
// returns the union of their scopes.
func (a *Aggregator) resolveLines(options []CategoryOption) ([]line, ledger.Scope, error) {
	tree := a.calc.Book().Categories
	union := ledger.Scope{}
	var lines []line

	add := func(c ledger.Category, inclusion InclusionType, scope ledger.Scope) {
		lines = append(lines, line{
			header: Header{Category: c.ID, Name: c.Name, Type: c.Type, Level: c.Level, Inclusion: inclusion},
			key:    ledger.SortKey{Type: c.Type, Left: c.Left},
			scope:  scope,
		})
		for id := range scope {
			union[id] = struct{}{}
		}
	}

	for _, opt := range options {
		if opt.Inclusion == InclusionNone {
			continue
		}
		c, ok := tree.Get(opt.Category)
		if !ok {
			return nil, nil, &ledger.CategoryTreeCorruptError{Category: opt.Category, Reason: "report references unknown category"}
		}

		switch opt.Inclusion {
		case InclusionCategoryOnly:
			add(c, opt.Inclusion, ledger.NewScope(c.ID))
		case InclusionCategoryAndSubcategories:
			scope, err := tree.ScopeOf(c.ID, true)
			if err != nil {
				return nil, nil, err
			}
			add(c, opt.Inclusion, scope)
		case InclusionBoth:
			add(c, opt.Inclusion, ledger.NewScope(c.ID))
			descendants, err := tree.Descendants(c.ID)
			if err != nil {
				return nil, nil, err
			}
			for _, d := range descendants {
				add(d, opt.Inclusion, ledger.NewScope(d.ID))
			}
		default:
			return nil, nil, fmt.Errorf("unknown inclusion type %d for category %d", int(opt.Inclusion), opt.Category)
		}
	}

	slices.SortStableFunc(lines, func(a, b line) int { return a.key.Compare(b.key) })
	return lines, union, nil
}

func flowRows(lines []line, periods Periods, currencies []ledger.CurrencyID, totals *ledger.Totals) []Row {
	rows := make([]Row, len(lines))
	for i, l := range lines {
		rows[i] = Row{Header: l.header, Series: make([]Series, len(currencies))}
		for j, cur := range currencies {
			points := make([]Point, len(periods))
			for b, p := range periods {
				cell := totals.Sum(l.scope, b)
				income, expense := cell.Inflow.Get(cur), cell.Outflow.Get(cur).Abs()
				points[b] = Point{Period: p, Income: income, Expense: expense, Value: income.Sub(expense)}
			}
			rows[i].Series[j] = Series{Currency: cur, Points: points}
		}
	}
	return rows
}

func valueRows(lines []line, periods Periods, currencies []ledger.CurrencyID, totals *ledger.Totals) []Row {
	opening := len(periods)
	rows := make([]Row, len(lines))
	for i, l := range lines {
		rows[i] = Row{Header: l.header, Series: make([]Series, len(currencies))}
		for j, cur := range currencies {
			balance := totals.Sum(l.scope, opening).Saldo().Get(cur)
			points := make([]Point, len(periods))
			for b, p := range periods {
				cell := totals.Sum(l.scope, b)
				balance = balance.Add(cell.Saldo().Get(cur))
				points[b] = Point{
					Period:  p,
					Income:  cell.Inflow.Get(cur),
					Expense: cell.Outflow.Get(cur).Abs(),
					Value:   balance,
				}
			}
			rows[i].Series[j] = Series{Currency: cur, Points: points}
		}
	}
	return rows
}

func shareSeries(lines []line, currencies []ledger.CurrencyID, totals *ledger.Totals, shareType ShareType, maxRows int) []ShareSeries {
	out := make([]ShareSeries, len(currencies))
	for j, cur := range currencies {
		rows := make([]ShareRow, len(lines))
		for i, l := range lines {
			rows[i] = ShareRow{Header: l.header, Value: totals.SumAll(l.scope).Saldo().Get(cur)}
		}
		if maxRows > 0 && len(rows) > maxRows {
			rows = foldOther(rows, maxRows)
		}

		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.Value)
		}
		for i := range rows {
			rows[i].Share = share(rows[i].Value, total, shareType)
		}
		out[j] = ShareSeries{Currency: cur, Total: total, Rows: rows}
	}
	return out
}

// foldOther keeps the maxRows rows with the largest absolute value, in their
// original order, and sums the rest into a trailing OtherCategory row. Equal
// values keep the earlier row.
func foldOther(rows []ShareRow, maxRows int) []ShareRow {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return rows[b].Value.Abs().Cmp(rows[a].Value.Abs())
	})

	keep := make(map[int]bool, maxRows)
	for _, i := range order[:maxRows] {
		keep[i] = true
	}

	out := make([]ShareRow, 0, maxRows+1)
	other := ShareRow{Header: Header{Category: OtherCategory, Name: "Other"}}
	for i, r := range rows {
		if keep[i] {
			out = append(out, r)
			continue
		}
		other.Value = other.Value.Add(r.Value)
	}
	return append(out, other)
}

func share(value, total decimal.Decimal, shareType ShareType) decimal.Decimal {
	if shareType == ShareValue {
		return value
	}
	if total.IsZero() {
		return decimal.Zero
	}
	return value.Mul(hundred).Div(total)
}
