package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// Algorithm selects how amounts in different currencies are made comparable.
// The set is closed: every switch over Algorithm lists all five cases.
type Algorithm int

const (
	// ShowAllCurrencies performs no conversion; totals stay per currency.
	ShowAllCurrencies Algorithm = iota
	// CalculateWithNewestExchanges uses the newest rate not after the reference date.
	CalculateWithNewestExchanges
	// CalculateWithExchangesClosestToTransaction uses the rate closest in time to the transfer day.
	CalculateWithExchangesClosestToTransaction
	// CalculateWithNewestExchangesBut is CalculateWithNewestExchanges with an inverse-pair fallback.
	CalculateWithNewestExchangesBut
	// CalculateWithExchangesClosestToTransactionBut is CalculateWithExchangesClosestToTransaction with an inverse-pair fallback.
	CalculateWithExchangesClosestToTransactionBut
)

var algorithmNames = []string{
	ShowAllCurrencies:                             "SHOW_ALL_CURRENCIES",
	CalculateWithNewestExchanges:                  "CALCULATE_WITH_NEWEST_EXCHANGES",
	CalculateWithExchangesClosestToTransaction:    "CALCULATE_WITH_EXCHANGES_CLOSEST_TO_TRANSACTION",
	CalculateWithNewestExchangesBut:               "CALCULATE_WITH_NEWEST_EXCHANGES_BUT",
	CalculateWithExchangesClosestToTransactionBut: "CALCULATE_WITH_EXCHANGES_CLOSEST_TO_TRANSACTION_BUT",
}

func (a Algorithm) String() string {
	if a >= 0 && int(a) < len(algorithmNames) {
		return algorithmNames[a]
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm parses an algorithm name (case-insensitive).
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range algorithmNames {
		if name == s {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("invalid multi-currency algorithm %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Converts reports whether the algorithm converts amounts into one currency.
func (a Algorithm) Converts() bool {
	return a != ShowAllCurrencies
}

// UsesTransactionDay reports whether rates are picked relative to each
// transfer's day rather than the computation's reference date.
func (a Algorithm) UsesTransactionDay() bool {
	return a == CalculateWithExchangesClosestToTransaction || a == CalculateWithExchangesClosestToTransactionBut
}

// selector picks the applicable exchange from a pair's history, which is
// sorted by day then id. It returns nil when none applies.
type selector func(history []*Exchange, on Date) *Exchange

// policy returns the selection rule of the algorithm and whether the inverse
// pair may be used when the exact pair has no applicable exchange.
func (a Algorithm) policy() (selector, bool, error) {
	switch a {
	case ShowAllCurrencies:
		return nil, false, ErrNoConversion
	case CalculateWithNewestExchanges:
		return newestOnOrBefore, false, nil
	case CalculateWithExchangesClosestToTransaction:
		return closestTo, false, nil
	case CalculateWithNewestExchangesBut:
		return newestOnOrBefore, true, nil
	case CalculateWithExchangesClosestToTransactionBut:
		return closestTo, true, nil
	default:
		return nil, false, fmt.Errorf("unknown multi-currency algorithm %d", int(a))
	}
}

// newestOnOrBefore picks the exchange with the latest day not after on; on
// equal days the highest id (most recently recorded) wins.
func newestOnOrBefore(history []*Exchange, on Date) *Exchange {
	idx := sort.Search(len(history), func(i int) bool { return history[i].Day.After(on) })
	if idx == 0 {
		return nil
	}
	return history[idx-1]
}

// closestTo picks the exchange minimizing the distance in days to on. Ties
// prefer the earlier day, then the highest id.
func closestTo(history []*Exchange, on Date) *Exchange {
	if len(history) == 0 {
		return nil
	}

	idx := sort.Search(len(history), func(i int) bool { return !history[i].Day.Before(on) })

	var before, after *Exchange
	if idx > 0 {
		before = history[idx-1]
	}
	if idx < len(history) {
		// Last entry of the earliest day on or after on, i.e. its highest id.
		j := idx
		for j+1 < len(history) && history[j+1].Day.Equal(history[idx].Day) {
			j++
		}
		after = history[j]
	}

	switch {
	case before == nil:
		return after
	case after == nil:
		return before
	}

	if before.Day.DaysUntil(on) <= on.DaysUntil(after.Day) {
		return before
	}
	return after
}

// Rate is a resolved directed conversion rate: 1 From = Value To.
type Rate struct {
	From     CurrencyID
	To       CurrencyID
	Value    decimal.Decimal
	Exchange *Exchange // nil for the identity rate
	Inverted bool      // true if Exchange was stored as To→From
}

// IsIdentity returns true for same-currency rates.
func (r Rate) IsIdentity() bool {
	return r.From == r.To
}

// Convert converts amount from r.From into r.To, rounded to two decimal
// places. The identity rate returns amount unchanged.
func (r Rate) Convert(amount decimal.Decimal) decimal.Decimal {
	if r.IsIdentity() {
		return amount
	}
	return amount.Mul(r.Value).Round(2)
}

func identityRate(c CurrencyID) Rate {
	return Rate{From: c, To: c, Value: decimal.NewFromInt(1)}
}

func directRate(ex *Exchange) Rate {
	return Rate{From: ex.Left, To: ex.Right, Value: ex.Rate, Exchange: ex}
}

func inverseRate(ex *Exchange) Rate {
	return Rate{From: ex.Right, To: ex.Left, Value: decimal.NewFromInt(1).Div(ex.Rate), Exchange: ex, Inverted: true}
}

type currencyPair struct {
	from, to CurrencyID
}

type memoKey struct {
	pair currencyPair
	day  int64
}

type memoEntry struct {
	rate Rate
	err  error
}

// Resolver resolves directed conversion rates under one algorithm.
//
// Exchanges are indexed per ordered pair and sorted by day then id, so each
// lookup is a binary search over the pair's history. Results are memoized per
// (from, to, date) for the lifetime of the resolver. A Resolver belongs to a
// single computation and must not be shared between goroutines.
type Resolver struct {
	algorithm  Algorithm
	history    map[currencyPair][]*Exchange
	byID       map[ExchangeID]*Exchange
	currencies map[CurrencyID]Currency
	memo       map[memoKey]memoEntry
}

// NewResolver creates a resolver over exchanges. currencies is only used to
// name currencies in errors and may be nil.
func NewResolver(algorithm Algorithm, exchanges []Exchange, currencies map[CurrencyID]Currency) *Resolver {
	r := &Resolver{
		algorithm:  algorithm,
		history:    make(map[currencyPair][]*Exchange),
		byID:       make(map[ExchangeID]*Exchange, len(exchanges)),
		currencies: currencies,
		memo:       make(map[memoKey]memoEntry),
	}

	for i := range exchanges {
		ex := &exchanges[i]
		pair := currencyPair{ex.Left, ex.Right}
		r.history[pair] = append(r.history[pair], ex)
		r.byID[ex.ID] = ex
	}
	for _, history := range r.history {
		slices.SortFunc(history, func(a, b *Exchange) int {
			if c := a.Day.Compare(b.Day); c != 0 {
				return c
			}
			return int(a.ID - b.ID)
		})
	}

	return r
}

// Algorithm returns the algorithm the resolver applies.
func (r *Resolver) Algorithm() Algorithm {
	return r.algorithm
}

// Resolve returns the rate converting from into to as of on. For the NEWEST
// algorithms on is the reference date ("today"); for the CLOSEST algorithms
// it is the transaction day.
//
// Same-currency conversions always return 1. Under ShowAllCurrencies it
// returns ErrNoConversion; when no exchange applies it returns an
// *ExchangeRateNotFoundError.
func (r *Resolver) Resolve(from, to CurrencyID, on Date) (Rate, error) {
	if from == to {
		return identityRate(from), nil
	}

	key := memoKey{currencyPair{from, to}, on.Unix()}
	if entry, ok := r.memo[key]; ok {
		return entry.rate, entry.err
	}

	rate, err := r.resolve(from, to, on)
	r.memo[key] = memoEntry{rate, err}
	return rate, err
}

func (r *Resolver) resolve(from, to CurrencyID, on Date) (Rate, error) {
	pick, allowInverse, err := r.algorithm.policy()
	if err != nil {
		return Rate{}, err
	}

	if ex := pick(r.history[currencyPair{from, to}], on); ex != nil {
		return directRate(ex), nil
	}
	if allowInverse {
		if ex := pick(r.history[currencyPair{to, from}], on); ex != nil {
			return inverseRate(ex), nil
		}
	}

	return Rate{}, r.notFound(from, to, on)
}

// ResolveForTransfer is like Resolve but first consults the exchanges the
// transfer explicitly links through its conversions. A linked exchange for
// the pair is used in either direction.
func (r *Resolver) ResolveForTransfer(from, to CurrencyID, on Date, conversions []Conversion) (Rate, error) {
	if from == to {
		return identityRate(from), nil
	}
	if !r.algorithm.Converts() {
		return Rate{}, ErrNoConversion
	}

	for _, conv := range conversions {
		ex, ok := r.byID[conv.ExchangeID]
		if !ok {
			continue
		}
		switch {
		case ex.Left == from && ex.Right == to:
			return directRate(ex), nil
		case ex.Left == to && ex.Right == from:
			return inverseRate(ex), nil
		}
	}

	return r.Resolve(from, to, on)
}

func (r *Resolver) notFound(from, to CurrencyID, on Date) error {
	return &ExchangeRateNotFoundError{
		From:       from,
		To:         to,
		FromSymbol: r.currencies[from].Symbol,
		ToSymbol:   r.currencies[to].Symbol,
		Date:       on,
		Algorithm:  r.algorithm,
	}
}
