package ledger

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every typed error below matches exactly one of them.
var (
	ErrCategoryTreeCorrupt  = errors.New("category tree corrupt")
	ErrInvalidCategoryMove  = errors.New("invalid category move")
	ErrExchangeRateNotFound = errors.New("exchange rate not found")
	ErrInvalidDateRange     = errors.New("invalid date range")

	// ErrNoConversion is returned by the resolver under SHOW_ALL_CURRENCIES.
	// Callers keep per-currency buckets instead of summing.
	ErrNoConversion = errors.New("algorithm performs no currency conversion")
)

// CategoryTreeCorruptError is returned when the nested-set bounds of the
// category tree violate an invariant, or when an operation references a
// category the tree does not know.
type CategoryTreeCorruptError struct {
	Category CategoryID
	Reason   string
}

func (e *CategoryTreeCorruptError) Error() string {
	if e.Category == NoCategory {
		return fmt.Sprintf("category tree corrupt: %s", e.Reason)
	}
	return fmt.Sprintf("category tree corrupt at category %d: %s", e.Category, e.Reason)
}

func (e *CategoryTreeCorruptError) Is(target error) bool {
	return target == ErrCategoryTreeCorrupt
}

// InvalidCategoryMoveError is returned when moving a category under itself
// or one of its descendants. The tree is left unchanged.
type InvalidCategoryMoveError struct {
	Category  CategoryID
	NewParent CategoryID
}

func (e *InvalidCategoryMoveError) Error() string {
	return fmt.Sprintf("cannot move category %d under %d: target is the category itself or one of its descendants",
		e.Category, e.NewParent)
}

func (e *InvalidCategoryMoveError) Is(target error) bool {
	return target == ErrInvalidCategoryMove
}

// ExchangeRateNotFoundError is returned when no usable rate exists for a
// currency pair under the active algorithm. It aborts the whole calculation.
type ExchangeRateNotFoundError struct {
	From       CurrencyID
	To         CurrencyID
	FromSymbol string
	ToSymbol   string
	Date       Date
	Algorithm  Algorithm
}

func (e *ExchangeRateNotFoundError) Error() string {
	return fmt.Sprintf("missing exchange rate for %s→%s on %s (%s)",
		symbolOr(e.FromSymbol, e.From), symbolOr(e.ToSymbol, e.To), e.Date, e.Algorithm)
}

func (e *ExchangeRateNotFoundError) Is(target error) bool {
	return target == ErrExchangeRateNotFound
}

// InvalidDateRangeError is returned before any computation starts when the
// requested range or period division cannot be honored.
type InvalidDateRangeError struct {
	Start  Date
	End    Date
	Reason string
}

func (e *InvalidDateRangeError) Error() string {
	if e.Start.IsZero() && e.End.IsZero() {
		return fmt.Sprintf("invalid date range: %s", e.Reason)
	}
	return fmt.Sprintf("invalid date range %s..%s: %s", e.Start, e.End, e.Reason)
}

func (e *InvalidDateRangeError) Is(target error) bool {
	return target == ErrInvalidDateRange
}

// ValidationErrors wraps multiple validation errors
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors for error unwrapping
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

func symbolOr(symbol string, id CurrencyID) string {
	if symbol != "" {
		return symbol
	}
	return fmt.Sprintf("#%d", id)
}
