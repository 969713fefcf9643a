package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/report"
)

// LimitCmd lists the recent transfers selected by the transaction amount
// limit preferences.
type LimitCmd struct {
	Type  string `help:"Limit type (TRANSACTION_COUNT, WEEK_COUNT, THIS_MONTH, THIS_AND_LAST_MONTH); default from preferences."`
	Value int    `help:"Limit value; default from preferences."`
}

func (cmd *LimitCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := globals.start(ctx, "limit")
	if err != nil {
		return err
	}
	defer s.finish()

	result, err := s.load(true)
	if err != nil {
		return s.fail(err, "failed to load dataset")
	}

	limitType := result.Preferences.TransactionAmountLimitType
	if cmd.Type != "" {
		if limitType, err = ledger.ParseLimitType(cmd.Type); err != nil {
			return err
		}
	}
	value := result.Preferences.TransactionAmountLimitValue
	if cmd.Value != 0 {
		value = cmd.Value
	}

	constraint, err := report.Limit(limitType, value, s.today)
	if err != nil {
		return s.fail(err, "invalid limit")
	}

	transfers := constraint.Apply(result.Book.Transfers)
	printTransfers(ctx.Stdout, result.Book, transfers)
	printInfof(ctx.Stdout, "%d of %d transfers (%s)", len(transfers), len(result.Book.Transfers), describeConstraint(limitType, constraint))
	return nil
}

func describeConstraint(limitType ledger.LimitType, c report.Constraint) string {
	if c.Limit > 0 {
		return fmt.Sprintf("%s %d", limitType, c.Limit)
	}
	return fmt.Sprintf("%s %s..%s", limitType, c.Start, c.End)
}

// printTransfers writes one row per transfer item. Continuation items leave
// the day and id columns empty.
func printTransfers(w io.Writer, book *ledger.Book, transfers []ledger.Transfer) {
	t := newTable("day", "id", "category", "amount", "description")
	t.right = []bool{false, true, false, true, false}

	for _, tr := range transfers {
		for i, item := range tr.Items {
			day, id := "", ""
			if i == 0 {
				day, id = tr.Day.String(), fmt.Sprintf("#%d", tr.ID)
			}
			category := fmt.Sprintf("#%d", item.CategoryID)
			if c, ok := book.Categories.Get(item.CategoryID); ok {
				category = c.Name
			}
			description := item.Description
			if description == "" && i == 0 {
				description = tr.Description
			}
			amount := formatAmount(item.Value) + " " + symbol(book, item.CurrencyID)
			t.add(day, id, category, amount, strings.TrimSpace(description))
		}
	}
	t.render(w)
}
