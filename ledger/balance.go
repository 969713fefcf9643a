package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Balance represents an amount across one or more currencies.
// It stores amounts in a slice sorted by currency id for deterministic
// iteration and display.
type Balance struct {
	entries []*CurrencyAmount
}

// CurrencyAmount represents an amount in a specific currency.
type CurrencyAmount struct {
	Currency CurrencyID      `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// NewBalance creates an empty balance.
func NewBalance() *Balance {
	return &Balance{entries: []*CurrencyAmount{}}
}

// Get returns the amount for a specific currency, or zero if not found.
func (b *Balance) Get(currency CurrencyID) decimal.Decimal {
	for _, e := range b.entries {
		if e.Currency == currency {
			return e.Amount
		}
	}
	return decimal.Zero
}

// Set sets or updates the amount for a currency.
func (b *Balance) Set(currency CurrencyID, amount decimal.Decimal) {
	for _, e := range b.entries {
		if e.Currency == currency {
			e.Amount = amount
			return
		}
	}

	b.entries = append(b.entries, &CurrencyAmount{
		Currency: currency,
		Amount:   amount,
	})
	sort.Slice(b.entries, func(i, j int) bool {
		return b.entries[i].Currency < b.entries[j].Currency
	})
}

// Add adds an amount to an existing currency balance.
func (b *Balance) Add(currency CurrencyID, amount decimal.Decimal) {
	b.Set(currency, b.Get(currency).Add(amount))
}

// IsZero returns true if all amounts are zero or balance is empty.
func (b *Balance) IsZero() bool {
	for _, e := range b.entries {
		if !e.Amount.IsZero() {
			return false
		}
	}
	return true
}

// Currencies returns the currencies in this balance in ascending id order.
func (b *Balance) Currencies() []CurrencyID {
	currencies := make([]CurrencyID, len(b.entries))
	for i, e := range b.entries {
		currencies[i] = e.Currency
	}
	return currencies
}

// Entries returns the underlying sorted list of currency amounts.
func (b *Balance) Entries() []*CurrencyAmount {
	return b.entries
}

// Merge combines another balance into this one by adding amounts.
func (b *Balance) Merge(other *Balance) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		b.Add(e.Currency, e.Amount)
	}
}

// Neg returns a copy with every amount negated.
func (b *Balance) Neg() *Balance {
	out := b.Copy()
	for _, e := range out.entries {
		e.Amount = e.Amount.Neg()
	}
	return out
}

// Abs returns a copy with every amount made non-negative.
func (b *Balance) Abs() *Balance {
	out := b.Copy()
	for _, e := range out.entries {
		e.Amount = e.Amount.Abs()
	}
	return out
}

// Copy creates a deep copy of this balance.
func (b *Balance) Copy() *Balance {
	if b == nil {
		return NewBalance()
	}
	entries := make([]*CurrencyAmount, len(b.entries))
	for i, e := range b.entries {
		entries[i] = &CurrencyAmount{
			Currency: e.Currency,
			Amount:   e.Amount,
		}
	}
	return &Balance{entries: entries}
}

// String returns a human-readable representation using currency ids.
func (b *Balance) String() string {
	return b.Format(nil)
}

// Format renders the balance with currency symbols looked up in currencies,
// falling back to "#id" for unknown currencies.
func (b *Balance) Format(currencies map[CurrencyID]Currency) string {
	if len(b.entries) == 0 {
		return "(empty)"
	}

	parts := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		parts = append(parts, fmt.Sprintf("%s %s", e.Amount.StringFixed(2), symbolOr(currencies[e.Currency].Symbol, e.Currency)))
	}
	return strings.Join(parts, ", ")
}
