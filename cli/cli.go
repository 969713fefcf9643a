// Package cli implements the saldo command-line interface on top of the
// ledger, report and loader packages.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/loader"
	"github.com/robinvdvleuten/saldo/output"
	"github.com/robinvdvleuten/saldo/telemetry"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// confirmFunc asks the user a yes/no question.
type confirmFunc func(question string) (bool, error)

// promptYesNo prompts the user with a yes/no question.
// Returns false by default if stdin is not a terminal.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}

	var confirm bool

	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	return confirm, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// session holds what a command needs once the global flags are applied.
type session struct {
	ctx    context.Context
	logger *zap.Logger
	styles *output.Styles
	today  ledger.Date

	globals *Globals
	stderr  io.Writer
	timer   telemetry.Timer
	timing  *telemetry.TimingCollector
	metrics *telemetry.PrometheusCollector
}

// start applies the global flags: it sets up logging and the telemetry
// collectors and opens a root timer called name. Callers must call finish.
func (g *Globals) start(ctx *kong.Context, name string) (*session, error) {
	s := &session{
		ctx:     context.Background(),
		logger:  zap.NewNop(),
		styles:  output.NewStyles(ctx.Stdout),
		today:   g.Today,
		globals: g,
		stderr:  ctx.Stderr,
	}

	if g.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		s.logger = logger
	}

	if s.today.IsZero() {
		s.today = ledger.DateOf(time.Now())
	}

	var collectors []telemetry.Collector
	if g.Telemetry {
		s.timing = telemetry.NewTimingCollector()
		collectors = append(collectors, s.timing)
	}
	if g.MetricsTextfile != "" {
		s.metrics = telemetry.NewPrometheusCollector("saldo")
		collectors = append(collectors, s.metrics)
	}
	if len(collectors) > 0 {
		collector := telemetry.Multi(collectors...)
		s.ctx = telemetry.WithCollector(s.ctx, collector)
		s.timer = collector.Start(name)
		s.ctx = telemetry.WithTimer(s.ctx, s.timer)
	}

	return s, nil
}

// finish ends the root timer and writes telemetry. It is safe to call more
// than once.
func (s *session) finish() {
	if s.timer != nil {
		s.timer.End()
		s.timer = nil

		if s.timing != nil {
			_, _ = fmt.Fprintln(s.stderr)
			s.timing.Report(s.stderr, output.NewStyles(s.stderr))
		}
		if s.metrics != nil {
			if err := s.metrics.WriteTextfile(s.globals.MetricsTextfile); err != nil {
				s.logger.Warn("failed to write metrics textfile", zap.Error(err))
			}
		}
	}
	_ = s.logger.Sync()
}

// load reads the dataset named by the global --data flag.
func (s *session) load(followIncludes bool) (*loader.Result, error) {
	opts := []loader.Option{loader.WithLogger(s.logger)}
	if followIncludes {
		opts = append(opts, loader.WithFollowIncludes())
	}
	return loader.New(opts...).Load(s.ctx, s.globals.Data)
}

// fail renders err with source context to stderr and returns a CommandError.
// Decode errors show the file they occurred in, which may be an include.
func (s *session) fail(err error, summary string) error {
	var source []byte
	var decodeErr *loader.DecodeError
	if errors.As(err, &decodeErr) {
		source, _ = os.ReadFile(decodeErr.Filename)
	}
	_, _ = fmt.Fprintln(s.stderr, NewErrorRenderer(source).Render(err))
	_, _ = fmt.Fprintln(s.stderr)
	printError(s.stderr, summary)
	return NewCommandError(1)
}

func relativePath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}

// currencyByRef finds a currency by symbol or numeric id.
func currencyByRef(book *ledger.Book, ref string) (ledger.Currency, error) {
	if c, ok := book.CurrencyBySymbol(ref); ok {
		return c, nil
	}
	var id ledger.CurrencyID
	if _, err := fmt.Sscan(ref, &id); err == nil {
		if c, ok := book.Currency(id); ok {
			return c, nil
		}
	}
	return ledger.Currency{}, fmt.Errorf("unknown currency %q", ref)
}
