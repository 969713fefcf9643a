package ledger

import (
	"github.com/shopspring/decimal"
)

type (
	CurrencyID     int64
	ExchangeID     int64
	TransferID     int64
	TransferItemID int64
)

// Currency is a unit amounts are recorded in.
type Currency struct {
	ID      CurrencyID `toml:"id" json:"id"`
	Symbol  string     `toml:"symbol" json:"symbol"`
	Name    string     `toml:"name" json:"name"`
	Default bool       `toml:"default,omitempty" json:"default,omitempty"`
}

// Exchange is a recorded conversion rate: 1 Left = Rate Right on Day.
type Exchange struct {
	ID    ExchangeID      `toml:"id" json:"id"`
	Left  CurrencyID      `toml:"left" json:"left"`
	Right CurrencyID      `toml:"right" json:"right"`
	Rate  decimal.Decimal `toml:"rate" json:"rate"`
	Day   Date            `toml:"day" json:"day"`
}

// Conversion links a transfer to an exchange actually used by it.
type Conversion struct {
	ExchangeID ExchangeID `toml:"exchange" json:"exchange"`
}

// TransferItem is a single line of a transfer. The sign of Value encodes the
// direction before any saldo inversion: non-negative is income, negative is
// outcome.
type TransferItem struct {
	ID          TransferItemID  `toml:"id" json:"id"`
	CategoryID  CategoryID      `toml:"category" json:"category"`
	CurrencyID  CurrencyID      `toml:"currency" json:"currency"`
	Value       decimal.Decimal `toml:"value" json:"value"`
	Description string          `toml:"description,omitempty" json:"description,omitempty"`
}

// IsIncome returns true if the item brings money into its category.
func (i TransferItem) IsIncome() bool {
	return !i.Value.IsNegative()
}

// Transfer is a dated transaction made of two or more items.
type Transfer struct {
	ID          TransferID     `toml:"id" json:"id"`
	Day         Date           `toml:"day" json:"day"`
	UserID      int64          `toml:"user,omitempty" json:"user,omitempty"`
	Description string         `toml:"description,omitempty" json:"description,omitempty"`
	Items       []TransferItem `toml:"items" json:"items"`
	Conversions []Conversion   `toml:"conversions,omitempty" json:"conversions,omitempty"`
}
