// Package ledger provides the multi-currency balance engine: the nested-set
// category tree, exchange rate resolution under a user-selected algorithm,
// and conversion of transfer items into comparable totals.
//
// All monetary amounts and rates are decimal values. The engine operates on
// already-fetched, read-only data bundled in a Book; nothing in this package
// performs I/O or mutates ledger data while computing.
//
// Example usage:
//
//	tree, err := ledger.NewCategoryTree(categories)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	book, err := ledger.NewBook(tree.Snapshot(), currencies, exchanges, transfers)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	calc := ledger.NewCalculator(book, prefs)
//	saldo, err := calc.CategorySaldo(ctx, foodID, start, end, today)
package ledger

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Book bundles the read-only inputs of one computation. Transfers are kept
// in ascending id order with their items in ascending id order, which is the
// order every calculation sums in.
type Book struct {
	Categories *CategorySnapshot
	Currencies map[CurrencyID]Currency
	Exchanges  []Exchange
	Transfers  []Transfer
}

// NewBook validates references between the inputs and returns a Book.
// All problems found are returned together as *ValidationErrors.
func NewBook(categories *CategorySnapshot, currencies []Currency, exchanges []Exchange, transfers []Transfer) (*Book, error) {
	var errs []error

	b := &Book{
		Categories: categories,
		Currencies: make(map[CurrencyID]Currency, len(currencies)),
		Exchanges:  make([]Exchange, len(exchanges)),
		Transfers:  make([]Transfer, len(transfers)),
	}

	for _, c := range currencies {
		if _, dup := b.Currencies[c.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate currency id %d", c.ID))
			continue
		}
		b.Currencies[c.ID] = c
	}

	copy(b.Exchanges, exchanges)
	exchangeIDs := make(map[ExchangeID]bool, len(exchanges))
	for _, ex := range b.Exchanges {
		if exchangeIDs[ex.ID] {
			errs = append(errs, fmt.Errorf("duplicate exchange id %d", ex.ID))
		}
		exchangeIDs[ex.ID] = true
		errs = append(errs, b.validateExchange(ex)...)
	}

	transferIDs := make(map[TransferID]bool, len(transfers))
	for i, t := range transfers {
		if transferIDs[t.ID] {
			errs = append(errs, fmt.Errorf("duplicate transfer id %d", t.ID))
		}
		transferIDs[t.ID] = true

		t.Items = slices.Clone(t.Items)
		slices.SortFunc(t.Items, func(a, b TransferItem) int { return int(a.ID - b.ID) })
		b.Transfers[i] = t

		errs = append(errs, b.validateTransfer(t, exchangeIDs)...)
	}
	slices.SortFunc(b.Transfers, func(a, b Transfer) int { return int(a.ID - b.ID) })

	if len(errs) > 0 {
		return nil, &ValidationErrors{Errors: errs}
	}
	return b, nil
}

func (b *Book) validateExchange(ex Exchange) []error {
	var errs []error
	if _, ok := b.Currencies[ex.Left]; !ok {
		errs = append(errs, fmt.Errorf("exchange %d references unknown currency %d", ex.ID, ex.Left))
	}
	if _, ok := b.Currencies[ex.Right]; !ok {
		errs = append(errs, fmt.Errorf("exchange %d references unknown currency %d", ex.ID, ex.Right))
	}
	if ex.Left == ex.Right {
		errs = append(errs, fmt.Errorf("exchange %d converts currency %d into itself", ex.ID, ex.Left))
	}
	if !ex.Rate.IsPositive() {
		errs = append(errs, fmt.Errorf("exchange %d rate must be positive, got %s", ex.ID, ex.Rate))
	}
	if ex.Day.IsZero() {
		errs = append(errs, fmt.Errorf("exchange %d has no day", ex.ID))
	}
	return errs
}

func (b *Book) validateTransfer(t Transfer, exchangeIDs map[ExchangeID]bool) []error {
	var errs []error
	if t.Day.IsZero() {
		errs = append(errs, fmt.Errorf("transfer %d has no day", t.ID))
	}
	if len(t.Items) < 2 {
		errs = append(errs, fmt.Errorf("transfer %d has %d item(s), at least 2 required", t.ID, len(t.Items)))
	}
	for _, item := range t.Items {
		if b.Categories != nil {
			if _, ok := b.Categories.Get(item.CategoryID); !ok {
				errs = append(errs, fmt.Errorf("transfer %d item %d references unknown category %d", t.ID, item.ID, item.CategoryID))
			}
		}
		if _, ok := b.Currencies[item.CurrencyID]; !ok {
			errs = append(errs, fmt.Errorf("transfer %d item %d references unknown currency %d", t.ID, item.ID, item.CurrencyID))
		}
	}
	for _, conv := range t.Conversions {
		if !exchangeIDs[conv.ExchangeID] {
			errs = append(errs, fmt.Errorf("transfer %d links unknown exchange %d", t.ID, conv.ExchangeID))
		}
	}
	return errs
}

// Currency returns a currency by id.
func (b *Book) Currency(id CurrencyID) (Currency, bool) {
	c, ok := b.Currencies[id]
	return c, ok
}

// DefaultCurrency returns the currency flagged as default, if any.
func (b *Book) DefaultCurrency() (Currency, bool) {
	for _, c := range b.Currencies {
		if c.Default {
			return c, true
		}
	}
	return Currency{}, false
}

// CurrencyBySymbol looks a currency up by its symbol.
func (b *Book) CurrencyBySymbol(symbol string) (Currency, bool) {
	for _, c := range b.Currencies {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return Currency{}, false
}

// NewResolver creates a request-local resolver over the book's exchanges.
func (b *Book) NewResolver(algorithm Algorithm) *Resolver {
	return NewResolver(algorithm, b.Exchanges, b.Currencies)
}
