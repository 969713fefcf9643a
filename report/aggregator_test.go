package report

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/saldo/ledger"
)

const (
	usd ledger.CurrencyID = 1
	eur ledger.CurrencyID = 2

	salary    ledger.CategoryID = 10
	expenses  ledger.CategoryID = 20
	food      ledger.CategoryID = 21
	groceries ledger.CategoryID = 22
	rent      ledger.CategoryID = 23
	wallet    ledger.CategoryID = 30
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(id ledger.TransferItemID, category ledger.CategoryID, currency ledger.CurrencyID, value string) ledger.TransferItem {
	return ledger.TransferItem{ID: id, CategoryID: category, CurrencyID: currency, Value: dec(value)}
}

func testBook(t *testing.T) *ledger.Book {
	t.Helper()
	tree, err := ledger.NewCategoryTree([]ledger.Category{
		{ID: salary, Name: "Salary", Type: ledger.CategoryTypeIncome, Left: 1, Right: 2},
		{ID: expenses, Name: "Expenses", Type: ledger.CategoryTypeExpense, Left: 3, Right: 10},
		{ID: food, Name: "Food", Type: ledger.CategoryTypeExpense, ParentID: expenses, Left: 4, Right: 7},
		{ID: groceries, Name: "Groceries", Type: ledger.CategoryTypeExpense, ParentID: food, Left: 5, Right: 6},
		{ID: rent, Name: "Rent", Type: ledger.CategoryTypeExpense, ParentID: expenses, Left: 8, Right: 9},
		{ID: wallet, Name: "Wallet", Type: ledger.CategoryTypeAsset, Left: 11, Right: 12},
	})
	assert.NoError(t, err)

	book, err := ledger.NewBook(tree.Snapshot(),
		[]ledger.Currency{
			{ID: usd, Symbol: "USD"},
			{ID: eur, Symbol: "EUR", Default: true},
		},
		[]ledger.Exchange{
			{ID: 1, Left: usd, Right: eur, Rate: dec("0.90"), Day: d("2023-12-01")},
		},
		[]ledger.Transfer{
			{ID: 1, Day: d("2024-01-05"), Items: []ledger.TransferItem{
				item(1, salary, usd, "-1000"), item(2, wallet, usd, "1000"),
			}},
			{ID: 2, Day: d("2024-01-10"), Items: []ledger.TransferItem{
				item(3, groceries, eur, "-50"), item(4, wallet, eur, "-50"),
			}},
			{ID: 3, Day: d("2024-02-03"), Items: []ledger.TransferItem{
				item(5, rent, eur, "-400"), item(6, wallet, eur, "-400"),
			}},
			{ID: 4, Day: d("2024-02-15"), Items: []ledger.TransferItem{
				item(7, food, usd, "-20"), item(8, wallet, usd, "-20"),
			}},
			{ID: 5, Day: d("2024-03-20"), Items: []ledger.TransferItem{
				item(9, groceries, eur, "-30"), item(10, wallet, eur, "-30"),
			}},
			{ID: 6, Day: d("2023-12-20"), Items: []ledger.TransferItem{
				item(11, salary, eur, "-500"), item(12, wallet, eur, "500"),
			}},
		})
	assert.NoError(t, err)
	return book
}

func testAggregator(t *testing.T, algorithm ledger.Algorithm) *Aggregator {
	t.Helper()
	prefs := ledger.DefaultPreferences()
	prefs.Algorithm = algorithm
	prefs.DefaultCurrencyID = eur
	return NewAggregator(ledger.NewCalculator(testBook(t), prefs))
}

var today = d("2024-03-31")

func firstQuarter(kind Kind, division PeriodDivision, options ...CategoryOption) Definition {
	return Definition{
		Name:           "q1",
		Kind:           kind,
		PeriodType:     PeriodSelected,
		PeriodStart:    d("2024-01-01"),
		PeriodEnd:      d("2024-03-31"),
		PeriodDivision: division,
		Categories:     options,
	}
}

func values(points []Point, field func(Point) decimal.Decimal) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = field(p).String()
	}
	return out
}

func income(p Point) decimal.Decimal  { return p.Income }
func expense(p Point) decimal.Decimal { return p.Expense }
func value(p Point) decimal.Decimal   { return p.Value }

func TestFlowReport(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	rep, err := agg.Generate(context.Background(), firstQuarter(KindFlow, DivisionMonth,
		CategoryOption{Category: expenses, Inclusion: InclusionCategoryAndSubcategories},
		CategoryOption{Category: salary, Inclusion: InclusionCategoryOnly},
	), today)
	assert.NoError(t, err)

	assert.True(t, rep.Converted)
	assert.Equal(t, []ledger.CurrencyID{eur}, rep.Currencies)
	assert.Equal(t, 3, len(rep.Periods))
	assert.Equal(t, 2, len(rep.Rows))

	// Income sorts before expense.
	salaryRow, expenseRow := rep.Rows[0], rep.Rows[1]
	assert.Equal(t, salary, salaryRow.Category)
	assert.Equal(t, []string{"900", "0", "0"}, values(salaryRow.Series[0].Points, income))

	assert.Equal(t, expenses, expenseRow.Category)
	assert.Equal(t, []string{"50", "418", "30"}, values(expenseRow.Series[0].Points, expense))
	assert.Equal(t, []string{"-50", "-418", "-30"}, values(expenseRow.Series[0].Points, value))
}

func TestFlowBucketsSumToUndividedTotal(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithExchangesClosestToTransaction)
	option := CategoryOption{Category: expenses, Inclusion: InclusionCategoryAndSubcategories}

	whole, err := agg.Generate(context.Background(), firstQuarter(KindFlow, DivisionNone, option), today)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(whole.Periods))

	for _, division := range []PeriodDivision{DivisionDay, DivisionWeek, DivisionMonth, DivisionQuarter, DivisionYear} {
		rep, err := agg.Generate(context.Background(), firstQuarter(KindFlow, division, option), today)
		assert.NoError(t, err)

		incomeSum, expenseSum := decimal.Zero, decimal.Zero
		for _, p := range rep.Rows[0].Series[0].Points {
			incomeSum = incomeSum.Add(p.Income)
			expenseSum = expenseSum.Add(p.Expense)
		}
		want := whole.Rows[0].Series[0].Points[0]
		assert.True(t, want.Income.Equal(incomeSum), "%s income", division)
		assert.True(t, want.Expense.Equal(expenseSum), "%s expense", division)
	}
}

func TestValueReportIncludesOpeningBalance(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	rep, err := agg.Generate(context.Background(), firstQuarter(KindValue, DivisionMonth,
		CategoryOption{Category: wallet, Inclusion: InclusionCategoryOnly},
	), today)
	assert.NoError(t, err)

	assert.Equal(t, []string{"1350", "932", "902"}, values(rep.Rows[0].Series[0].Points, value))
}

func TestShareReportPercentages(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	rep, err := agg.Generate(context.Background(), firstQuarter(KindShare, DivisionNone,
		CategoryOption{Category: expenses, Inclusion: InclusionBoth},
	), today)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rep.Shares))

	series := rep.Shares[0]
	assert.Equal(t, "-498", series.Total.String())

	var ids []ledger.CategoryID
	sum := decimal.Zero
	for _, row := range series.Rows {
		ids = append(ids, row.Category)
		sum = sum.Add(row.Share)
	}
	assert.Equal(t, []ledger.CategoryID{expenses, food, groceries, rent}, ids)
	assert.Equal(t, []string{"0", "-18", "-80", "-400"}, []string{
		series.Rows[0].Value.String(), series.Rows[1].Value.String(),
		series.Rows[2].Value.String(), series.Rows[3].Value.String(),
	})
	assert.True(t, sum.Sub(decimal.NewFromInt(100)).Abs().LessThan(dec("0.000001")), "shares sum to %s", sum)
}

func TestShareReportMaxCategories(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	def := firstQuarter(KindShare, DivisionNone, CategoryOption{Category: expenses, Inclusion: InclusionBoth})
	def.MaxCategoriesValuesCount = 2
	rep, err := agg.Generate(context.Background(), def, today)
	assert.NoError(t, err)

	rows := rep.Shares[0].Rows
	assert.Equal(t, 3, len(rows))
	assert.Equal(t, groceries, rows[0].Category)
	assert.Equal(t, rent, rows[1].Category)
	assert.Equal(t, OtherCategory, rows[2].Category)
	assert.Equal(t, "-18", rows[2].Value.String())
	assert.Equal(t, "-498", rep.Shares[0].Total.String())
}

func TestShareReportValueType(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	def := firstQuarter(KindShare, DivisionNone, CategoryOption{Category: food, Inclusion: InclusionCategoryAndSubcategories})
	def.ShareType = ShareValue
	rep, err := agg.Generate(context.Background(), def, today)
	assert.NoError(t, err)

	row := rep.Shares[0].Rows[0]
	assert.Equal(t, "-98", row.Value.String())
	assert.True(t, row.Share.Equal(row.Value))
}

func TestShareReportZeroTotal(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	def := firstQuarter(KindShare, DivisionNone,
		CategoryOption{Category: rent, Inclusion: InclusionCategoryOnly},
		CategoryOption{Category: groceries, Inclusion: InclusionCategoryOnly},
	)
	def.PeriodStart, def.PeriodEnd = d("2025-01-01"), d("2025-12-31")
	rep, err := agg.Generate(context.Background(), def, today)
	assert.NoError(t, err)

	for _, series := range rep.Shares {
		for _, row := range series.Rows {
			assert.True(t, row.Share.IsZero())
		}
	}
}

func TestShowAllCurrenciesSeries(t *testing.T) {
	agg := testAggregator(t, ledger.ShowAllCurrencies)

	rep, err := agg.Generate(context.Background(), firstQuarter(KindShare, DivisionNone,
		CategoryOption{Category: expenses, Inclusion: InclusionCategoryAndSubcategories},
	), today)
	assert.NoError(t, err)

	assert.False(t, rep.Converted)
	assert.Equal(t, []ledger.CurrencyID{usd, eur}, rep.Currencies)
	assert.Equal(t, "-20", rep.Shares[0].Total.String())
	assert.Equal(t, "-480", rep.Shares[1].Total.String())
	assert.Equal(t, "100", rep.Shares[0].Rows[0].Share.String())
}

func TestInclusionNoneSkipsCategory(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	rep, err := agg.Generate(context.Background(), firstQuarter(KindFlow, DivisionNone,
		CategoryOption{Category: rent, Inclusion: InclusionNone},
		CategoryOption{Category: food, Inclusion: InclusionCategoryOnly},
	), today)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rep.Rows))
	assert.Equal(t, food, rep.Rows[0].Category)
}

func TestGenerateErrors(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)
	option := CategoryOption{Category: expenses, Inclusion: InclusionCategoryAndSubcategories}

	def := firstQuarter(KindFlow, DivisionMonth, option)
	def.PeriodType = PeriodWeek
	_, err := agg.Generate(context.Background(), def, today)
	assert.True(t, errors.Is(err, ledger.ErrInvalidDateRange))

	def = firstQuarter(KindFlow, DivisionMonth, option)
	def.PeriodEnd = d("2023-01-01")
	_, err = agg.Generate(context.Background(), def, today)
	assert.True(t, errors.Is(err, ledger.ErrInvalidDateRange))

	def = firstQuarter(KindFlow, DivisionMonth, CategoryOption{Category: 404, Inclusion: InclusionCategoryOnly})
	_, err = agg.Generate(context.Background(), def, today)
	assert.True(t, errors.Is(err, ledger.ErrCategoryTreeCorrupt))

	// No rate exists on or before the reference date.
	rep, err := agg.Generate(context.Background(), firstQuarter(KindFlow, DivisionMonth, option), d("2023-11-01"))
	assert.True(t, errors.Is(err, ledger.ErrExchangeRateNotFound))
	assert.True(t, rep == nil)
}

func TestGenerateRelativePeriod(t *testing.T) {
	agg := testAggregator(t, ledger.CalculateWithNewestExchanges)

	rep, err := agg.Generate(context.Background(), Definition{
		Name:           "this month",
		Kind:           KindFlow,
		PeriodType:     PeriodMonth,
		PeriodDivision: DivisionWeek,
		Categories:     []CategoryOption{{Category: expenses, Inclusion: InclusionCategoryAndSubcategories}},
	}, d("2024-02-20"))
	assert.NoError(t, err)
	assert.Equal(t, "2024-02-01", rep.Start.String())
	assert.Equal(t, "2024-02-29", rep.End.String())
	assert.Equal(t, 5, len(rep.Periods))
}
