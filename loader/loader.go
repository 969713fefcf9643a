// Package loader reads saldo datasets from TOML files. A dataset holds the
// currencies, category tree, exchange history, transfers, preferences and
// report definitions of one user.
//
// The loader supports two modes of operation:
//   - Simple mode: decodes a single file with its include list preserved
//   - Follow mode: recursively loads all included files and merges them into one dataset
//
// When following includes, the loader resolves relative paths from the directory of
// the file containing the include list, and deduplicates files that are included
// multiple times.
//
// Example usage:
//
//	// Load a single file without following includes
//	ldr := loader.New()
//	result, err := ldr.Load(ctx, "saldo.toml")
//
//	// Load with recursive include resolution and build the book
//	ldr := loader.New(loader.WithFollowIncludes())
//	result, err := ldr.Load(ctx, "saldo.toml")
//	book := result.Book
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/report"
	"github.com/robinvdvleuten/saldo/telemetry"
)

// Dataset is the on-disk form of a ledger.
type Dataset struct {
	Include     []string            `toml:"include,omitempty"`
	Preferences map[string]any      `toml:"preferences,omitempty"`
	Currencies  []ledger.Currency   `toml:"currencies,omitempty"`
	Categories  []ledger.Category   `toml:"categories,omitempty"`
	Exchanges   []ledger.Exchange   `toml:"exchanges,omitempty"`
	Transfers   []ledger.Transfer   `toml:"transfers,omitempty"`
	Reports     []report.Definition `toml:"reports,omitempty"`
}

// Result is a loaded dataset together with the engine objects built from it.
type Result struct {
	// Root is the absolute path of the file passed to Load.
	Root string
	// Includes lists the absolute paths of every included file that was
	// loaded, in load order. Empty unless includes are followed.
	Includes []string

	Dataset     *Dataset
	Preferences ledger.Preferences
	Tree        *ledger.CategoryTree
	Book        *ledger.Book
}

// Report returns the report definition with the given name.
func (r *Result) Report(name string) (report.Definition, bool) {
	for _, def := range r.Dataset.Reports {
		if def.Name == name {
			return def, true
		}
	}
	return report.Definition{}, false
}

// DecodeError is returned when a file is not valid TOML or does not match
// the dataset layout.
type DecodeError struct {
	Filename string
	Line     int
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Filename, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Loader handles loading of dataset files with optional include resolution.
//
// Configure the loader using functional options passed to New:
//
//	ldr := New(WithFollowIncludes(), WithLogger(logger))
type Loader struct {
	// FollowIncludes determines whether to recursively load included files.
	// When false, only the specified file is decoded and Dataset.Include is
	// preserved.
	FollowIncludes bool

	logger *zap.Logger
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to recursively load and merge all
// included files. The preferences and reports of the main file take
// precedence over those of included files.
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// WithLogger sets the logger include resolution is reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{
		FollowIncludes: false,
		logger:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load decodes a dataset file and builds its category tree and book.
func (l *Loader) Load(ctx context.Context, filename string) (*Result, error) {
	ctx, timer := telemetry.StartTimer(ctx, "loader.load")
	defer timer.End()

	root, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	result := &Result{Root: root}

	if !l.FollowIncludes {
		ds, err := decodeFile(filename)
		if err != nil {
			return nil, err
		}
		result.Dataset = ds
	} else {
		state := &loaderState{
			visited: make(map[string]bool),
			logger:  l.logger,
		}
		ds, err := state.loadRecursive(ctx, filename)
		if err != nil {
			return nil, err
		}
		result.Dataset = ds
		for _, path := range state.order {
			if path != root {
				result.Includes = append(result.Includes, path)
			}
		}
	}

	if err := result.build(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// build derives preferences, the category tree and the book from the dataset.
func (r *Result) build(ctx context.Context) error {
	_, timer := telemetry.StartTimer(ctx, "loader.build")
	defer timer.End()

	prefs, err := ledger.PreferencesFromOptions(ledger.DefaultPreferences(), PreferenceOptions(r.Dataset.Preferences))
	if err != nil {
		return fmt.Errorf("%s: preferences: %w", r.Root, err)
	}
	r.Preferences = prefs

	categories := r.Dataset.Categories
	if !hasBounds(categories) {
		if categories, err = ledger.RebuildBounds(categories); err != nil {
			return err
		}
	}
	if r.Tree, err = ledger.NewCategoryTree(categories); err != nil {
		return err
	}

	r.Book, err = ledger.NewBook(r.Tree.Snapshot(), r.Dataset.Currencies, r.Dataset.Exchanges, r.Dataset.Transfers)
	return err
}

// Rebuild rebuilds the book from the current state of the tree. Call it
// after mutating Tree.
func (r *Result) Rebuild() error {
	r.Dataset.Categories = r.Tree.Snapshot().Categories()
	book, err := ledger.NewBook(r.Tree.Snapshot(), r.Dataset.Currencies, r.Dataset.Exchanges, r.Dataset.Transfers)
	if err != nil {
		return err
	}
	r.Book = book
	return nil
}

// hasBounds reports whether any category carries nested-set bounds. Datasets
// written by hand usually only have parent links.
func hasBounds(categories []ledger.Category) bool {
	for _, c := range categories {
		if c.Left != 0 || c.Right != 0 {
			return true
		}
	}
	return false
}

// PreferenceOptions converts a decoded [preferences] table to the string
// option form accepted by ledger.PreferencesFromOptions.
func PreferenceOptions(table map[string]any) map[string]string {
	options := make(map[string]string, len(table))
	for key, val := range table {
		options[key] = fmt.Sprint(val)
	}
	return options
}

// Save encodes ds as TOML and writes it to filename.
func Save(filename string, ds *Dataset) error {
	var buf bytes.Buffer
	if err := Encode(&buf, ds); err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// Encode writes ds as TOML to w.
func Encode(w io.Writer, ds *Dataset) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return nil
}

// Decode decodes a dataset from data. filename is only used in errors.
func Decode(filename string, data []byte) (*Dataset, error) {
	var ds Dataset
	md, err := toml.Decode(string(data), &ds)
	if err != nil {
		de := &DecodeError{Filename: filename, Err: err}
		var perr toml.ParseError
		if errors.As(err, &perr) {
			de.Line = perr.Position.Line
			if perr.Message != "" {
				de.Err = errors.New(perr.Message)
			}
		}
		return nil, de
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &DecodeError{Filename: filename, Err: fmt.Errorf("unknown key %q", undecoded[0].String())}
	}
	return &ds, nil
}

func decodeFile(filename string) (*Dataset, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return Decode(filename, data)
}

// loaderState tracks state during recursive loading.
type loaderState struct {
	visited map[string]bool // Absolute paths of files already loaded
	order   []string
	logger  *zap.Logger
}

// loadRecursive recursively loads a file and all its includes.
func (l *loaderState) loadRecursive(ctx context.Context, filename string) (*Dataset, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	// Same file included more than once.
	if l.visited[absPath] {
		l.logger.Debug("skipping already loaded file", zap.String("path", absPath))
		return &Dataset{}, nil
	}
	l.visited[absPath] = true
	l.order = append(l.order, absPath)

	ds, err := decodeFile(filename)
	if err != nil {
		return nil, err
	}

	if len(ds.Include) == 0 {
		ds.Include = nil
		return ds, nil
	}

	baseDir := filepath.Dir(absPath)
	var included []*Dataset

	for _, inc := range ds.Include {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		includePath := inc
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}
		l.logger.Debug("loading include", zap.String("from", absPath), zap.String("path", includePath))

		child, err := l.loadRecursive(ctx, includePath)
		if err != nil {
			return nil, fmt.Errorf("in file %s: %w", filename, err)
		}
		included = append(included, child)
	}

	return mergeDatasets(ds, included...), nil
}

// mergeDatasets combines a main dataset with included ones. Preferences
// from the main file win key by key; report definitions from included files
// are only added when the main file has none of the same name. Ordering of
// records does not matter since the book sorts them by id.
func mergeDatasets(main *Dataset, included ...*Dataset) *Dataset {
	result := &Dataset{
		Preferences: make(map[string]any),
		Currencies:  append([]ledger.Currency(nil), main.Currencies...),
		Categories:  append([]ledger.Category(nil), main.Categories...),
		Exchanges:   append([]ledger.Exchange(nil), main.Exchanges...),
		Transfers:   append([]ledger.Transfer(nil), main.Transfers...),
		Reports:     append([]report.Definition(nil), main.Reports...),
	}

	reports := make(map[string]bool, len(main.Reports))
	for _, def := range main.Reports {
		reports[def.Name] = true
	}

	for _, inc := range included {
		for key, val := range inc.Preferences {
			result.Preferences[key] = val
		}
		result.Currencies = append(result.Currencies, inc.Currencies...)
		result.Categories = append(result.Categories, inc.Categories...)
		result.Exchanges = append(result.Exchanges, inc.Exchanges...)
		result.Transfers = append(result.Transfers, inc.Transfers...)
		for _, def := range inc.Reports {
			if !reports[def.Name] {
				reports[def.Name] = true
				result.Reports = append(result.Reports, def)
			}
		}
	}

	for key, val := range main.Preferences {
		result.Preferences[key] = val
	}
	if len(result.Preferences) == 0 {
		result.Preferences = nil
	}

	return result
}
