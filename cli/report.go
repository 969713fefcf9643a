package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/loader"
	"github.com/robinvdvleuten/saldo/report"
)

type ReportCmd struct {
	Names    []string `help:"Reports to generate (default all)." arg:"" optional:""`
	JSON     bool     `help:"Print reports as JSON." name:"json"`
	Currency string   `help:"Convert into this currency (symbol or id) instead of the preferred one."`
	Watch    bool     `help:"Regenerate reports whenever the dataset changes." short:"w"`
}

func (cmd *ReportCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := globals.start(ctx, "report")
	if err != nil {
		return err
	}
	defer s.finish()

	result, err := s.load(true)
	if err != nil {
		return s.fail(err, "failed to load dataset")
	}

	if err := cmd.render(s.ctx, ctx.Stdout, result, s.today); err != nil {
		if !cmd.Watch {
			return s.fail(err, "report failed")
		}
		_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(nil).Render(err))
	}
	if !cmd.Watch {
		return nil
	}

	watchCtx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stdout := ctx.Stdout
	files := append([]string{result.Root}, result.Includes...)
	printInfof(ctx.Stderr, "Watching %s for changes", pathStyle.Render(relativePath(result.Root)))

	return watchFiles(watchCtx, s.logger, files, func(ctx context.Context) ([]string, error) {
		result, err := s.load(true)
		if err != nil {
			_, _ = fmt.Fprintln(s.stderr, NewErrorRenderer(nil).Render(err))
			return nil, err
		}
		if err := cmd.render(ctx, stdout, result, s.today); err != nil {
			_, _ = fmt.Fprintln(s.stderr, NewErrorRenderer(nil).Render(err))
		}
		return append([]string{result.Root}, result.Includes...), nil
	})
}

// render generates the selected reports and writes them to w.
func (cmd *ReportCmd) render(ctx context.Context, w io.Writer, result *loader.Result, today ledger.Date) error {
	defs, err := cmd.definitions(result)
	if err != nil {
		return err
	}

	var currency ledger.CurrencyID
	if cmd.Currency != "" {
		c, err := currencyByRef(result.Book, cmd.Currency)
		if err != nil {
			return err
		}
		currency = c.ID
	}

	reports, err := generateAll(ctx, result, defs, today, currency)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	for i, rep := range reports {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		renderReport(w, rep, result.Book)
	}
	return nil
}

func (cmd *ReportCmd) definitions(result *loader.Result) ([]report.Definition, error) {
	if len(cmd.Names) == 0 {
		if len(result.Dataset.Reports) == 0 {
			return nil, fmt.Errorf("no reports defined in %s", relativePath(result.Root))
		}
		return result.Dataset.Reports, nil
	}

	defs := make([]report.Definition, 0, len(cmd.Names))
	for _, name := range cmd.Names {
		def, ok := result.Report(name)
		if !ok {
			return nil, fmt.Errorf("unknown report %q", name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// generateAll computes defs concurrently over the same book. The first
// failure cancels the remaining reports and no partial result is returned.
func generateAll(ctx context.Context, result *loader.Result, defs []report.Definition, today ledger.Date, currency ledger.CurrencyID) ([]*report.Report, error) {
	agg := report.NewAggregator(ledger.NewCalculator(result.Book, result.Preferences))
	reports := make([]*report.Report, len(defs))

	g, ctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		if currency != 0 {
			def.Currency = currency
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep, err := agg.Generate(ctx, def, today)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
