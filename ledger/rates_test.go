package ledger

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

const (
	usd CurrencyID = 1
	eur CurrencyID = 2
	pln CurrencyID = 3
)

var testCurrencies = map[CurrencyID]Currency{
	usd: {ID: usd, Symbol: "USD", Name: "US Dollar"},
	eur: {ID: eur, Symbol: "EUR", Name: "Euro", Default: true},
	pln: {ID: pln, Symbol: "PLN", Name: "Polish Zloty"},
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usdEurHistory() []Exchange {
	return []Exchange{
		{ID: 1, Left: usd, Right: eur, Rate: dec("0.90"), Day: MustParseDate("2024-01-01")},
		{ID: 2, Left: usd, Right: eur, Rate: dec("0.92"), Day: MustParseDate("2024-03-01")},
	}
}

func TestResolveNewest(t *testing.T) {
	r := NewResolver(CalculateWithNewestExchanges, usdEurHistory(), testCurrencies)

	rate, err := r.Resolve(usd, eur, MustParseDate("2024-02-01"))
	assert.NoError(t, err)
	assert.Equal(t, "0.9", rate.Value.String())
	assert.Equal(t, ExchangeID(1), rate.Exchange.ID)

	rate, err = r.Resolve(usd, eur, MustParseDate("2024-03-01"))
	assert.NoError(t, err)
	assert.Equal(t, ExchangeID(2), rate.Exchange.ID)

	_, err = r.Resolve(usd, eur, MustParseDate("2023-12-31"))
	assert.True(t, errors.Is(err, ErrExchangeRateNotFound))
}

func TestResolveNewestSameDayPrefersHighestID(t *testing.T) {
	exchanges := append(usdEurHistory(),
		Exchange{ID: 7, Left: usd, Right: eur, Rate: dec("0.91"), Day: MustParseDate("2024-01-01")})
	r := NewResolver(CalculateWithNewestExchanges, exchanges, testCurrencies)

	rate, err := r.Resolve(usd, eur, MustParseDate("2024-02-01"))
	assert.NoError(t, err)
	assert.Equal(t, ExchangeID(7), rate.Exchange.ID)
}

func TestResolveClosest(t *testing.T) {
	r := NewResolver(CalculateWithExchangesClosestToTransaction, usdEurHistory(), testCurrencies)

	rate, err := r.Resolve(usd, eur, MustParseDate("2024-02-10"))
	assert.NoError(t, err)
	assert.Equal(t, "0.92", rate.Value.String())

	// Before all history the first exchange is closest.
	rate, err = r.Resolve(usd, eur, MustParseDate("2020-01-01"))
	assert.NoError(t, err)
	assert.Equal(t, ExchangeID(1), rate.Exchange.ID)

	// After all history the last one is.
	rate, err = r.Resolve(usd, eur, MustParseDate("2030-01-01"))
	assert.NoError(t, err)
	assert.Equal(t, ExchangeID(2), rate.Exchange.ID)
}

func TestResolveClosestTieBreak(t *testing.T) {
	exchanges := []Exchange{
		{ID: 1, Left: usd, Right: eur, Rate: dec("0.90"), Day: MustParseDate("2024-01-01")},
		{ID: 2, Left: usd, Right: eur, Rate: dec("0.95"), Day: MustParseDate("2024-01-03")},
		{ID: 3, Left: usd, Right: eur, Rate: dec("0.96"), Day: MustParseDate("2024-01-03")},
		{ID: 4, Left: usd, Right: eur, Rate: dec("0.91"), Day: MustParseDate("2024-01-01")},
	}
	r := NewResolver(CalculateWithExchangesClosestToTransaction, exchanges, testCurrencies)

	// Equidistant: the earlier day wins, then the highest id on that day.
	rate, err := r.Resolve(usd, eur, MustParseDate("2024-01-02"))
	assert.NoError(t, err)
	assert.Equal(t, ExchangeID(4), rate.Exchange.ID)

	// Exact day match with two exchanges: the highest id wins.
	rate, err = r.Resolve(usd, eur, MustParseDate("2024-01-03"))
	assert.NoError(t, err)
	assert.Equal(t, ExchangeID(3), rate.Exchange.ID)
}

func TestResolveInverseOnlyWithBut(t *testing.T) {
	day := MustParseDate("2024-02-01")

	strict := NewResolver(CalculateWithNewestExchanges, usdEurHistory(), testCurrencies)
	_, err := strict.Resolve(eur, usd, day)
	assert.True(t, errors.Is(err, ErrExchangeRateNotFound))

	var notFound *ExchangeRateNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing exchange rate for EUR→USD on 2024-02-01 (CALCULATE_WITH_NEWEST_EXCHANGES)", notFound.Error())

	for _, algorithm := range []Algorithm{CalculateWithNewestExchangesBut, CalculateWithExchangesClosestToTransactionBut} {
		r := NewResolver(algorithm, usdEurHistory(), testCurrencies)
		rate, err := r.Resolve(eur, usd, day)
		assert.NoError(t, err)
		assert.True(t, rate.Inverted)
		assert.Equal(t, eur, rate.From)
		assert.Equal(t, usd, rate.To)
	}
}

func TestResolveButNeitherDirection(t *testing.T) {
	r := NewResolver(CalculateWithNewestExchangesBut, usdEurHistory(), testCurrencies)

	_, err := r.Resolve(usd, pln, MustParseDate("2024-02-01"))
	assert.True(t, errors.Is(err, ErrExchangeRateNotFound))
}

func TestInverseRateProductIsOne(t *testing.T) {
	day := MustParseDate("2024-02-01")
	for _, algorithm := range []Algorithm{CalculateWithNewestExchangesBut, CalculateWithExchangesClosestToTransactionBut} {
		r := NewResolver(algorithm, usdEurHistory(), testCurrencies)

		there, err := r.Resolve(usd, eur, day)
		assert.NoError(t, err)
		back, err := r.Resolve(eur, usd, day)
		assert.NoError(t, err)

		product := there.Value.Mul(back.Value)
		assert.True(t, product.Sub(decimal.NewFromInt(1)).Abs().LessThan(dec("0.000000001")),
			"%s: product %s", algorithm, product)
	}
}

func TestResolveIdentityAndShowAll(t *testing.T) {
	r := NewResolver(ShowAllCurrencies, usdEurHistory(), testCurrencies)

	rate, err := r.Resolve(usd, usd, MustParseDate("2024-02-01"))
	assert.NoError(t, err)
	assert.True(t, rate.IsIdentity())
	assert.Equal(t, "12.345", rate.Convert(dec("12.345")).String())

	_, err = r.Resolve(usd, eur, MustParseDate("2024-02-01"))
	assert.True(t, errors.Is(err, ErrNoConversion))

	_, err = r.ResolveForTransfer(usd, eur, MustParseDate("2024-02-01"), []Conversion{{ExchangeID: 1}})
	assert.True(t, errors.Is(err, ErrNoConversion))
}

func TestResolveUnknownAlgorithm(t *testing.T) {
	r := NewResolver(Algorithm(42), usdEurHistory(), testCurrencies)

	_, err := r.Resolve(usd, eur, MustParseDate("2024-02-01"))
	assert.Error(t, err)
}

func TestResolveForTransferPrefersLinkedExchange(t *testing.T) {
	exchanges := append(usdEurHistory(),
		Exchange{ID: 9, Left: eur, Right: usd, Rate: dec("1.25"), Day: MustParseDate("2023-06-01")})
	r := NewResolver(CalculateWithNewestExchanges, exchanges, testCurrencies)
	day := MustParseDate("2024-02-01")

	// The linked exchange is stored EUR→USD; converting USD→EUR divides.
	rate, err := r.ResolveForTransfer(usd, eur, day, []Conversion{{ExchangeID: 9}})
	assert.NoError(t, err)
	assert.Equal(t, ExchangeID(9), rate.Exchange.ID)
	assert.True(t, rate.Inverted)
	assert.Equal(t, "80.00", rate.Convert(dec("100")).StringFixed(2))

	// Links for other pairs are ignored.
	rate, err = r.ResolveForTransfer(usd, pln, day, []Conversion{{ExchangeID: 9}})
	assert.True(t, errors.Is(err, ErrExchangeRateNotFound))
	assert.Zero(t, rate)
}

func TestResolverMemoizesErrors(t *testing.T) {
	r := NewResolver(CalculateWithNewestExchanges, usdEurHistory(), testCurrencies)
	day := MustParseDate("2023-01-01")

	_, err1 := r.Resolve(usd, eur, day)
	_, err2 := r.Resolve(usd, eur, day)
	assert.Equal(t, err1, err2)
	assert.Equal(t, 1, len(r.memo))
}

func TestRateConvertRounds(t *testing.T) {
	rate := Rate{From: usd, To: eur, Value: dec("0.333333")}
	assert.Equal(t, "33.33", rate.Convert(dec("100")).String())
	assert.Equal(t, "0.01", rate.Convert(dec("0.03")).String())
}

func TestParseAlgorithm(t *testing.T) {
	for _, name := range algorithmNames {
		a, err := ParseAlgorithm(name)
		assert.NoError(t, err)
		assert.Equal(t, name, a.String())
	}

	a, err := ParseAlgorithm("calculate_with_newest_exchanges_but")
	assert.NoError(t, err)
	assert.Equal(t, CalculateWithNewestExchangesBut, a)

	_, err = ParseAlgorithm("BEST_GUESS")
	assert.Error(t, err)
}
