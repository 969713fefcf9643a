package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/saldo/errors"
)

type CheckCmd struct{}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := globals.start(ctx, "check "+relativePath(globals.Data))
	if err != nil {
		return err
	}
	defer s.finish()

	result, err := s.load(true)
	if err != nil {
		errs := errors.Flatten(err)
		if len(errs) > 1 {
			_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(nil).RenderAll(errs))
			_, _ = fmt.Fprintln(ctx.Stderr)
			printError(ctx.Stderr, fmt.Sprintf("%d validation error(s) found", len(errs)))
			return NewCommandError(1)
		}
		return s.fail(err, "check failed")
	}

	for _, def := range result.Dataset.Reports {
		if err := def.Validate(); err != nil {
			return s.fail(err, "invalid report definition")
		}
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Check passed: %d categories, %d currencies, %d exchanges, %d transfers",
		result.Tree.Len(), len(result.Book.Currencies), len(result.Book.Exchanges), len(result.Book.Transfers)))
	for _, inc := range result.Includes {
		printInfof(ctx.Stdout, "included %s", pathStyle.Render(relativePath(inc)))
	}

	return nil
}
