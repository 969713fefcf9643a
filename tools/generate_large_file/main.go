// Large Dataset Generator
//
// This tool generates a large saldo dataset for performance testing and profiling.
// It creates a category tree, weekly exchange rates and realistic multi-currency
// transfers to stress-test the loader, the rate resolver and the report engine.
//
// Usage:
//
//	go run main.go > large.toml
//	go run main.go 200000 > large.toml  # Specify the number of transfers
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/loader"
	"github.com/robinvdvleuten/saldo/report"
)

const (
	defaultTransfers = 50000
)

type categorySpec struct {
	name     string
	kind     ledger.CategoryType
	children []string
}

var (
	tree = []categorySpec{
		{"Salary", ledger.CategoryTypeIncome, []string{"Bonus"}},
		{"Investments", ledger.CategoryTypeIncome, []string{"Dividends", "Interest"}},
		{"Food", ledger.CategoryTypeExpense, []string{"Groceries", "Restaurant"}},
		{"Housing", ledger.CategoryTypeExpense, []string{"Rent", "Utilities"}},
		{"Transport", ledger.CategoryTypeExpense, []string{"Gas", "Transit"}},
		{"Shopping", ledger.CategoryTypeExpense, []string{"Clothing", "Electronics"}},
		{"Entertainment", ledger.CategoryTypeExpense, []string{"Movies", "Concerts"}},
		{"Healthcare", ledger.CategoryTypeExpense, []string{"Medical", "Dental"}},
		{"Bank", ledger.CategoryTypeAsset, []string{"Checking", "Savings"}},
		{"Cash", ledger.CategoryTypeAsset, nil},
		{"Credit Card", ledger.CategoryTypeLiability, nil},
	}

	descriptions = []string{
		"Grocery shopping", "Fuel purchase", "Rent payment",
		"Salary deposit", "Utility bill", "Online purchase",
		"Restaurant dinner", "Coffee", "Monthly subscription",
		"Medical appointment", "Dividend payment", "Gift",
	}

	currencies = []ledger.Currency{
		{ID: 1, Symbol: "USD", Name: "US Dollar", Default: true},
		{ID: 2, Symbol: "EUR", Name: "Euro"},
		{ID: 3, Symbol: "GBP", Name: "Pound Sterling"},
		{ID: 4, Symbol: "CAD", Name: "Canadian Dollar"},
	}
)

func main() {
	count := defaultTransfers
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil {
			count = n
		}
	}

	start := ledger.NewDate(2020, time.January, 1)
	ds := &loader.Dataset{
		Preferences: map[string]any{
			"default_currency": int64(1),
			"multi_currency_balance_calculating_algorithm": ledger.CalculateWithNewestExchangesBut.String(),
			"include_transactions_from_subcategories":      true,
		},
		Currencies: currencies,
	}

	leaves := generateCategories(ds)
	days := count / 10
	generateExchanges(ds, start, days)
	generateTransfers(ds, start, days, count, leaves)
	generateReports(ds)

	if err := loader.Encode(os.Stdout, ds); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generated %d categories, %d exchanges and %d transfers\n",
		len(ds.Categories), len(ds.Exchanges), len(ds.Transfers))
}

// generateCategories appends the tree and returns the leaves by type. Bounds
// are left out and rebuilt on load.
func generateCategories(ds *loader.Dataset) map[ledger.CategoryType][]ledger.CategoryID {
	leaves := make(map[ledger.CategoryType][]ledger.CategoryID)
	id := ledger.CategoryID(1)
	for _, spec := range tree {
		parent := id
		ds.Categories = append(ds.Categories, ledger.Category{ID: parent, Name: spec.name, Type: spec.kind})
		id++
		if len(spec.children) == 0 {
			leaves[spec.kind] = append(leaves[spec.kind], parent)
			continue
		}
		for _, child := range spec.children {
			ds.Categories = append(ds.Categories, ledger.Category{ID: id, Name: child, Type: spec.kind, ParentID: parent})
			leaves[spec.kind] = append(leaves[spec.kind], id)
			id++
		}
	}
	return leaves
}

// generateExchanges records one rate per foreign currency into USD every
// week, drifting a little each time.
func generateExchanges(ds *loader.Dataset, start ledger.Date, days int) {
	rates := map[ledger.CurrencyID]float64{2: 1.10, 3: 1.27, 4: 0.74}
	id := ledger.ExchangeID(1)
	for day := 0; day <= days; day += 7 {
		for _, c := range currencies[1:] {
			rates[c.ID] *= 1 + (rand.Float64()-0.5)/50
			ds.Exchanges = append(ds.Exchanges, ledger.Exchange{
				ID:    id,
				Left:  c.ID,
				Right: 1,
				Rate:  decimal.NewFromFloat(rates[c.ID]).Round(4),
				Day:   start.AddDays(day),
			})
			id++
		}
	}
}

func generateTransfers(ds *loader.Dataset, start ledger.Date, days, count int, leaves map[ledger.CategoryType][]ledger.CategoryID) {
	assets := leaves[ledger.CategoryTypeAsset]
	var item ledger.TransferItemID

	for i := 0; i < count; i++ {
		t := ledger.Transfer{
			ID:          ledger.TransferID(i + 1),
			Day:         start.AddDays(rand.Intn(days + 1)),
			Description: descriptions[rand.Intn(len(descriptions))],
		}
		currency := currencies[0].ID
		if rand.Intn(5) == 0 {
			currency = currencies[1+rand.Intn(len(currencies)-1)].ID
		}

		var category ledger.CategoryID
		amount := randAmount(5, 500)
		switch rand.Intn(10) {
		case 0: // 10% - income
			category = pick(leaves[ledger.CategoryTypeIncome])
			amount = randAmount(500, 5000)
		case 1: // 10% - credit card purchase
			category = pick(leaves[ledger.CategoryTypeLiability])
			amount = amount.Neg()
		default: // 80% - expense
			category = pick(leaves[ledger.CategoryTypeExpense])
			amount = amount.Neg()
		}

		item++
		t.Items = append(t.Items, ledger.TransferItem{ID: item, CategoryID: category, CurrencyID: currency, Value: amount})
		item++
		t.Items = append(t.Items, ledger.TransferItem{ID: item, CategoryID: pick(assets), CurrencyID: currency, Value: amount})

		ds.Transfers = append(ds.Transfers, t)
	}
}

func generateReports(ds *loader.Dataset) {
	var expenses, assets []report.CategoryOption
	for _, c := range ds.Categories {
		if !c.IsRoot() {
			continue
		}
		option := report.CategoryOption{Category: c.ID, Inclusion: report.InclusionCategoryAndSubcategories}
		switch c.Type {
		case ledger.CategoryTypeExpense:
			expenses = append(expenses, option)
		case ledger.CategoryTypeAsset, ledger.CategoryTypeLiability:
			assets = append(assets, option)
		}
	}

	ds.Reports = []report.Definition{
		{Name: "Monthly flow", Kind: report.KindFlow, PeriodType: report.PeriodYear, PeriodDivision: report.DivisionMonth, Categories: expenses},
		{Name: "Net worth", Kind: report.KindValue, PeriodType: report.PeriodYear, PeriodDivision: report.DivisionQuarter, Categories: assets},
		{Name: "Top spending", Kind: report.KindShare, PeriodType: report.PeriodYear, Categories: expenses, MaxCategoriesValuesCount: 5},
	}
}

func pick(ids []ledger.CategoryID) ledger.CategoryID {
	return ids[rand.Intn(len(ids))]
}

func randAmount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(min + rand.Float64()*(max-min)).Round(2)
}
