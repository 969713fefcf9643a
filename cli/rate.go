package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/saldo/ledger"
)

type RateCmd struct {
	From      string      `help:"Currency to convert from (symbol or id)." arg:""`
	To        string      `help:"Currency to convert to (symbol or id)." arg:""`
	Amount    string      `help:"Amount to convert." default:"1"`
	On        ledger.Date `help:"Date to resolve the rate for (default today)."`
	Algorithm string      `help:"Conversion algorithm (default from preferences)." short:"a"`
}

func (cmd *RateCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := globals.start(ctx, "rate")
	if err != nil {
		return err
	}
	defer s.finish()

	result, err := s.load(true)
	if err != nil {
		return s.fail(err, "failed to load dataset")
	}

	from, err := currencyByRef(result.Book, cmd.From)
	if err != nil {
		return err
	}
	to, err := currencyByRef(result.Book, cmd.To)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(cmd.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", cmd.Amount, err)
	}

	algorithm := result.Preferences.Algorithm
	if cmd.Algorithm != "" {
		if algorithm, err = ledger.ParseAlgorithm(cmd.Algorithm); err != nil {
			return err
		}
	}

	on := cmd.On
	if on.IsZero() {
		on = s.today
	}

	rate, err := result.Book.NewResolver(algorithm).Resolve(from.ID, to.ID, on)
	if err != nil {
		return s.fail(err, "no rate")
	}

	_, _ = fmt.Fprintf(ctx.Stdout, "%s %s = %s %s\n",
		s.styles.Amount(amount.StringFixed(2)), from.Symbol,
		s.styles.Amount(rate.Convert(amount).StringFixed(2)), to.Symbol)

	switch {
	case rate.IsIdentity():
		printInfof(ctx.Stdout, "same currency")
	case rate.Inverted:
		printInfof(ctx.Stdout, "inverse of exchange #%d (%s %s→%s = %s) on %s",
			rate.Exchange.ID, algorithm, to.Symbol, from.Symbol, rate.Exchange.Rate, rate.Exchange.Day)
	default:
		printInfof(ctx.Stdout, "exchange #%d (%s) on %s, rate %s",
			rate.Exchange.ID, algorithm, rate.Exchange.Day, rate.Value)
	}
	return nil
}
