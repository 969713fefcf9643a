package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/loader"
	"github.com/robinvdvleuten/saldo/output"
)

// TreeCmd shows and edits the category tree. Mutations only touch the
// categories of the dataset file itself, never those of included files.
type TreeCmd struct {
	Show   TreeShowCmd   `cmd:"" default:"1" help:"Print the category tree."`
	Insert TreeInsertCmd `cmd:"" help:"Add a category."`
	Move   TreeMoveCmd   `cmd:"" help:"Move a category and its subtree under a new parent."`
	Delete TreeDeleteCmd `cmd:"" help:"Delete a category and its subtree."`
}

type TreeShowCmd struct {
	Saldo bool `help:"Show each category's saldo up to today."`
}

func (cmd *TreeShowCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := globals.start(ctx, "tree show")
	if err != nil {
		return err
	}
	defer s.finish()

	result, err := s.load(true)
	if err != nil {
		return s.fail(err, "failed to load dataset")
	}

	var saldos map[ledger.CategoryID]*ledger.Balance
	if cmd.Saldo {
		calc := ledger.NewCalculator(result.Book, result.Preferences)
		saldos = make(map[ledger.CategoryID]*ledger.Balance)
		for _, c := range result.Book.Categories.Categories() {
			saldo, err := calc.CategorySaldo(s.ctx, c.ID, ledger.Date{}, s.today, s.today)
			if err != nil {
				return s.fail(err, "failed to compute saldo")
			}
			saldos[c.ID] = saldo
		}
	}

	printTree(ctx.Stdout, s.styles, result.Book, saldos)
	return nil
}

// printTree writes the categories in report order, indented by level.
func printTree(w io.Writer, styles *output.Styles, book *ledger.Book, saldos map[ledger.CategoryID]*ledger.Balance) {
	categories := book.Categories.Categories()

	width := 0
	labels := make([]string, len(categories))
	for i, c := range categories {
		labels[i] = strings.Repeat("  ", c.Level) + c.Name
		width = max(width, runewidth.StringWidth(labels[i]))
	}

	var lastType ledger.CategoryType
	for i, c := range categories {
		if c.Type != lastType {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			_, _ = fmt.Fprintln(w, styles.Keyword(c.Type.String()))
			lastType = c.Type
		}

		line := fmt.Sprintf("%s  %s", styles.Category(runewidth.FillRight(labels[i], width)), styles.Dim(fmt.Sprintf("#%d", c.ID)))
		if saldo, ok := saldos[c.ID]; ok && !saldo.IsZero() {
			parts := make([]string, 0, len(saldo.Entries()))
			for _, e := range saldo.Entries() {
				parts = append(parts, styles.Saldo(e.Amount, formatAmount(e.Amount)+" "+symbol(book, e.Currency)))
			}
			line += "  " + strings.Join(parts, ", ")
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

type TreeInsertCmd struct {
	Name   string              `help:"Name of the new category." arg:""`
	Parent ledger.CategoryID   `help:"Parent category id (0 for a new root)." default:"0"`
	Type   ledger.CategoryType `help:"Category type; defaults to the parent's type."`
}

func (cmd *TreeInsertCmd) Run(ctx *kong.Context, globals *Globals) error {
	return mutateTree(ctx, globals, "tree insert", func(result *loader.Result) (string, error) {
		categoryType := cmd.Type
		if cmd.Parent != ledger.NoCategory && categoryType == ledger.CategoryTypeUnknown {
			parent, ok := result.Tree.Snapshot().Get(cmd.Parent)
			if !ok {
				return "", &ledger.CategoryTreeCorruptError{Category: cmd.Parent, Reason: "unknown parent category"}
			}
			categoryType = parent.Type
		}
		if categoryType == ledger.CategoryTypeUnknown {
			return "", fmt.Errorf("a root category needs --type")
		}

		c, err := result.Tree.Insert(cmd.Parent, cmd.Name, categoryType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Inserted %s (#%d)", c.Name, c.ID), nil
	})
}

type TreeMoveCmd struct {
	Category ledger.CategoryID `help:"Category to move." arg:""`
	Parent   ledger.CategoryID `help:"New parent (0 to make it a root)." arg:""`
}

func (cmd *TreeMoveCmd) Run(ctx *kong.Context, globals *Globals) error {
	return mutateTree(ctx, globals, "tree move", func(result *loader.Result) (string, error) {
		if err := result.Tree.Move(cmd.Category, cmd.Parent); err != nil {
			return "", err
		}
		c, _ := result.Tree.Snapshot().Get(cmd.Category)
		return fmt.Sprintf("Moved %s (#%d) to level %d", c.Name, c.ID, c.Level), nil
	})
}

type TreeDeleteCmd struct {
	Category ledger.CategoryID `help:"Category to delete." arg:""`
	Yes      bool              `help:"Do not ask for confirmation." short:"y"`

	confirm confirmFunc
}

func (cmd *TreeDeleteCmd) Run(ctx *kong.Context, globals *Globals) error {
	confirm := cmd.confirm
	if confirm == nil {
		confirm = promptYesNo
	}
	if cmd.Yes {
		confirm = func(string) (bool, error) { return true, nil }
	}

	return mutateTree(ctx, globals, "tree delete", func(result *loader.Result) (string, error) {
		c, ok := result.Tree.Snapshot().Get(cmd.Category)
		if !ok {
			return "", &ledger.CategoryTreeCorruptError{Category: cmd.Category, Reason: "unknown category"}
		}
		ok, err := confirm(fmt.Sprintf("Delete %s (#%d) and all of its subcategories?", c.Name, c.ID))
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errAborted
		}

		removed, err := result.Tree.Delete(cmd.Category)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted %d categories", len(removed)), nil
	})
}

var errAborted = fmt.Errorf("aborted")

// mutateTree loads the dataset file without its includes, applies mutate to
// the tree and saves the file if the result still validates.
func mutateTree(ctx *kong.Context, globals *Globals, name string, mutate func(*loader.Result) (string, error)) error {
	s, err := globals.start(ctx, name)
	if err != nil {
		return err
	}
	defer s.finish()

	result, err := s.load(false)
	if err != nil {
		return s.fail(err, "failed to load dataset")
	}

	message, err := mutate(result)
	if err == errAborted {
		printInfof(ctx.Stdout, "Nothing changed")
		return nil
	}
	if err != nil {
		return s.fail(err, "tree unchanged")
	}

	// Transfers may still reference deleted categories.
	if err := result.Rebuild(); err != nil {
		return s.fail(err, "tree unchanged")
	}
	if err := loader.Save(result.Root, result.Dataset); err != nil {
		return err
	}

	s.logger.Debug("saved dataset", zap.String("path", result.Root))
	printSuccess(ctx.Stdout, message)
	return nil
}
