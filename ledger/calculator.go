package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/saldo/telemetry"
)

// Bucketer maps a transfer day to a bucket index. A negative index drops the
// transfer from the calculation.
type Bucketer interface {
	Bucket(day Date) int
}

// Query describes one balance calculation.
type Query struct {
	// Scope restricts the categories whose items count. Nil means all.
	Scope Scope
	// Start and End bound transfer days inclusively. A zero bound is open.
	Start, End Date
	// TargetCurrency is the currency converted totals are expressed in.
	// Zero falls back to the preferences and then to the book's default.
	TargetCurrency       CurrencyID
	Algorithm            Algorithm
	InvertSaldoForIncome bool
	// AsOf is the reference date of the NEWEST algorithms. Zero means each
	// transfer's own day.
	AsOf Date
	// Buckets assigns transfers to buckets. Nil puts everything in bucket 0.
	Buckets Bucketer
}

// Cell accumulates inflow (non-negative values) and outflow (negative values)
// of one category in one bucket.
type Cell struct {
	Inflow  *Balance
	Outflow *Balance
}

func newCell() *Cell {
	return &Cell{Inflow: NewBalance(), Outflow: NewBalance()}
}

// Saldo returns inflow plus outflow.
func (c *Cell) Saldo() *Balance {
	saldo := c.Inflow.Copy()
	saldo.Merge(c.Outflow)
	return saldo
}

func (c *Cell) add(currency CurrencyID, value decimal.Decimal) {
	if value.IsNegative() {
		c.Outflow.Add(currency, value)
	} else {
		c.Inflow.Add(currency, value)
	}
}

func (c *Cell) merge(o *Cell) {
	c.Inflow.Merge(o.Inflow)
	c.Outflow.Merge(o.Outflow)
}

type cellKey struct {
	category CategoryID
	bucket   int
}

// Totals is the result of a calculation: per category and bucket cells.
// When Converted is false (SHOW_ALL_CURRENCIES) balances are kept per native
// currency; otherwise every balance holds only Target.
type Totals struct {
	Converted bool
	Target    CurrencyID

	cells      map[cellKey]*Cell
	keys       []cellKey
	currencies map[CurrencyID]struct{}
}

func newTotals(converted bool, target CurrencyID) *Totals {
	return &Totals{
		Converted:  converted,
		Target:     target,
		cells:      make(map[cellKey]*Cell),
		currencies: make(map[CurrencyID]struct{}),
	}
}

func (t *Totals) add(category CategoryID, bucket int, currency CurrencyID, value decimal.Decimal) {
	key := cellKey{category, bucket}
	cell, ok := t.cells[key]
	if !ok {
		cell = newCell()
		t.cells[key] = cell
	}
	cell.add(currency, value)
	t.currencies[currency] = struct{}{}
}

// Cell returns a copy of the cell for category in bucket. Missing cells are
// empty.
func (t *Totals) Cell(category CategoryID, bucket int) *Cell {
	out := newCell()
	if cell, ok := t.cells[cellKey{category, bucket}]; ok {
		out.merge(cell)
	}
	return out
}

// Sum adds up the cells of every category in scope for one bucket. A nil
// scope sums all categories.
func (t *Totals) Sum(scope Scope, bucket int) *Cell {
	out := newCell()
	if scope == nil {
		for _, key := range t.keys {
			if key.bucket == bucket {
				out.merge(t.cells[key])
			}
		}
		return out
	}

	ids := make([]CategoryID, 0, len(scope))
	for id := range scope {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if cell, ok := t.cells[cellKey{id, bucket}]; ok {
			out.merge(cell)
		}
	}
	return out
}

// SumAll adds up the cells of every category in scope across all buckets.
func (t *Totals) SumAll(scope Scope) *Cell {
	out := newCell()
	for _, key := range t.keys {
		if scope == nil || scope.Contains(key.category) {
			out.merge(t.cells[key])
		}
	}
	return out
}

// Currencies returns every currency seen, ascending. Converted totals only
// ever contain the target currency.
func (t *Totals) Currencies() []CurrencyID {
	ids := make([]CurrencyID, 0, len(t.currencies))
	for id := range t.currencies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// seal records the cell keys in (category, bucket) order so sums run in the
// same order on every call. Totals are read-only afterwards.
func (t *Totals) seal() *Totals {
	t.keys = make([]cellKey, 0, len(t.cells))
	for key := range t.cells {
		t.keys = append(t.keys, key)
	}
	slices.SortFunc(t.keys, func(a, b cellKey) int {
		if a.category != b.category {
			return int(a.category - b.category)
		}
		return a.bucket - b.bucket
	})
	return t
}

// Calculator converts transfer items of a book into totals. It holds no
// mutable state, so one Calculator may serve concurrent calculations.
type Calculator struct {
	book  *Book
	prefs Preferences
}

// NewCalculator creates a calculator over book using prefs for defaults.
func NewCalculator(book *Book, prefs Preferences) *Calculator {
	return &Calculator{book: book, prefs: prefs}
}

// Book returns the calculator's book.
func (c *Calculator) Book() *Book {
	return c.book
}

// Preferences returns the preferences the calculator was created with.
func (c *Calculator) Preferences() Preferences {
	return c.prefs
}

// Query returns a query over scope and [start, end] configured from the
// calculator's preferences.
func (c *Calculator) Query(scope Scope, start, end, asOf Date) Query {
	return Query{
		Scope:                scope,
		Start:                start,
		End:                  end,
		TargetCurrency:       c.prefs.DefaultCurrencyID,
		Algorithm:            c.prefs.Algorithm,
		InvertSaldoForIncome: c.prefs.InvertSaldoForIncome,
		AsOf:                 asOf,
	}
}

// Calculate runs q over the book. Transfers are processed in ascending id
// order, items in ascending id order. A missing exchange rate aborts the
// calculation and no partial totals are returned.
func (c *Calculator) Calculate(ctx context.Context, q Query) (*Totals, error) {
	_, timer := telemetry.StartTimer(ctx, "ledger.calculate")
	defer timer.End()

	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return nil, &InvalidDateRangeError{Start: q.Start, End: q.End, Reason: "end is before start"}
	}

	converted := q.Algorithm.Converts()
	var target CurrencyID
	if converted {
		var err error
		if target, err = c.targetCurrency(q.TargetCurrency); err != nil {
			return nil, err
		}
	}

	resolver := c.book.NewResolver(q.Algorithm)
	totals := newTotals(converted, target)

	for _, transfer := range c.book.Transfers {
		if !q.Start.IsZero() && transfer.Day.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && transfer.Day.After(q.End) {
			continue
		}

		bucket := 0
		if q.Buckets != nil {
			if bucket = q.Buckets.Bucket(transfer.Day); bucket < 0 {
				continue
			}
		}

		for _, item := range transfer.Items {
			if q.Scope != nil && !q.Scope.Contains(item.CategoryID) {
				continue
			}

			currency, value := item.CurrencyID, item.Value
			if converted {
				on := transfer.Day
				if !q.Algorithm.UsesTransactionDay() && !q.AsOf.IsZero() {
					on = q.AsOf
				}
				rate, err := resolver.ResolveForTransfer(item.CurrencyID, target, on, transfer.Conversions)
				if err != nil {
					return nil, fmt.Errorf("transfer %d item %d: %w", transfer.ID, item.ID, err)
				}
				currency, value = target, rate.Convert(value)
			}

			if q.InvertSaldoForIncome && c.categoryType(item.CategoryID) == CategoryTypeIncome {
				value = value.Neg()
			}

			totals.add(item.CategoryID, bucket, currency, value)
		}
	}

	return totals.seal(), nil
}

// CategorySaldo returns the saldo of a category over [start, end]. Whether
// subcategories count follows IncludeTransactionsFromSubcategories.
func (c *Calculator) CategorySaldo(ctx context.Context, categoryID CategoryID, start, end, asOf Date) (*Balance, error) {
	scope, err := c.book.Categories.ScopeOf(categoryID, c.prefs.IncludeTransactionsFromSubcategories)
	if err != nil {
		return nil, err
	}

	totals, err := c.Calculate(ctx, c.Query(scope, start, end, asOf))
	if err != nil {
		return nil, err
	}
	return totals.SumAll(scope).Saldo(), nil
}

func (c *Calculator) targetCurrency(requested CurrencyID) (CurrencyID, error) {
	if requested == 0 {
		requested = c.prefs.DefaultCurrencyID
	}
	if requested == 0 {
		cur, ok := c.book.DefaultCurrency()
		if !ok {
			return 0, fmt.Errorf("no target currency: set a default currency or pass one explicitly")
		}
		return cur.ID, nil
	}
	if _, ok := c.book.Currency(requested); !ok {
		return 0, fmt.Errorf("unknown target currency %d", requested)
	}
	return requested, nil
}

func (c *Calculator) categoryType(id CategoryID) CategoryType {
	if c.book.Categories == nil {
		return CategoryTypeUnknown
	}
	cat, _ := c.book.Categories.Get(id)
	return cat.Type
}
