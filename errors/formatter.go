// Package errors provides error formatting infrastructure for saldo engine errors.
// It separates error formatting from domain logic, allowing errors to be rendered in
// multiple formats (text, JSON) for different consumers (CLI, API).
//
// The package defines a Formatter interface and provides two implementations:
//   - TextFormatter: Formats errors for command-line output in bean-check style
//   - JSONFormatter: Formats errors as structured JSON for APIs
//
// Domain-specific error types remain in their respective packages (ledger, loader),
// while this package handles the presentation layer.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/loader"
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	// Format formats a single error.
	Format(err error) string

	// FormatAll formats multiple errors.
	FormatAll(errs []error) string
}

// Flatten expands *ledger.ValidationErrors (at any wrapping depth) into its
// individual errors. Other errors are returned as a single-element slice.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	var verrs *ledger.ValidationErrors
	if stderrors.As(err, &verrs) {
		return verrs.Errors
	}
	return []error{err}
}

// TextFormatter formats errors for command-line output in bean-check style.
type TextFormatter struct {
	sourceContent []byte // Optional source content for decode error context
}

// TextFormatterOption is an option for configuring TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithSource sets the source content for decode error context.
func WithSource(source []byte) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.sourceContent = source
	}
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts ...TextFormatterOption) *TextFormatter {
	tf := &TextFormatter{}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format formats a single error in bean-check style.
func (tf *TextFormatter) Format(err error) string {
	var verrs *ledger.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs.Errors) > 1 {
		return fmt.Sprintf("%s\n\n%s", err.Error(), tf.FormatAll(verrs.Errors))
	}

	var decodeErr *loader.DecodeError
	if stderrors.As(err, &decodeErr) && decodeErr.Line > 0 && tf.sourceContent != nil {
		return tf.formatWithSourceContext(decodeErr.Line, err.Error(), tf.sourceContent)
	}

	var notFound *ledger.ExchangeRateNotFoundError
	if stderrors.As(err, &notFound) {
		return fmt.Sprintf("%s\n\n   add an exchange between %s and %s dated on or near %s",
			err.Error(), symbolOr(notFound.FromSymbol, notFound.From), symbolOr(notFound.ToSymbol, notFound.To), notFound.Date)
	}

	return err.Error()
}

// FormatAll formats multiple errors, separating them with blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for i, err := range errs {
		buf.WriteString(tf.Format(err))

		// Add blank line between errors (but not after the last one)
		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

// formatWithSourceContext formats a decode error with original source context.
// Shows the error message followed by the source lines around the error line,
// with the offending line marked.
func (tf *TextFormatter) formatWithSourceContext(line int, message string, sourceContent []byte) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	// Two lines before and one after, 0-based.
	startLine := line - 3
	endLine := line
	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(sourceLines) {
		endLine = len(sourceLines) - 1
	}

	for i := startLine; i <= endLine; i++ {
		marker := "   "
		if i == line-1 {
			marker = " > "
		}
		buf.WriteString(marker)
		buf.WriteString(sourceLines[i])
		buf.WriteByte('\n')
	}

	return buf.String()
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON represents an error in JSON format.
type ErrorJSON struct {
	Kind     string         `json:"kind"`
	Message  string         `json:"message"`
	Position *PositionJSON  `json:"position,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// PositionJSON represents a file position in JSON format.
type PositionJSON struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
}

// Error kinds reported in ErrorJSON.Kind.
const (
	KindCategoryTreeCorrupt  = "category_tree_corrupt"
	KindInvalidCategoryMove  = "invalid_category_move"
	KindExchangeRateNotFound = "exchange_rate_not_found"
	KindInvalidDateRange     = "invalid_date_range"
	KindDecode               = "decode"
	KindError                = "error"
)

// Format formats a single error as JSON.
func (jf *JSONFormatter) Format(err error) string {
	data, _ := json.Marshal(jf.toJSON(err))
	return string(data)
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		result = append(result, jf.toJSON(err))
	}
	return result
}

// toJSON converts an error to ErrorJSON, extracting the structured fields
// of the engine's error kinds.
func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	errJSON := ErrorJSON{
		Kind:    KindError,
		Message: err.Error(),
		Details: make(map[string]any),
	}

	var (
		corrupt   *ledger.CategoryTreeCorruptError
		move      *ledger.InvalidCategoryMoveError
		notFound  *ledger.ExchangeRateNotFoundError
		dateRange *ledger.InvalidDateRangeError
		decodeErr *loader.DecodeError
	)

	switch {
	case stderrors.As(err, &corrupt):
		errJSON.Kind = KindCategoryTreeCorrupt
		if corrupt.Category != ledger.NoCategory {
			errJSON.Details["category"] = corrupt.Category
		}
		errJSON.Details["reason"] = corrupt.Reason

	case stderrors.As(err, &move):
		errJSON.Kind = KindInvalidCategoryMove
		errJSON.Details["category"] = move.Category
		errJSON.Details["new_parent"] = move.NewParent

	case stderrors.As(err, &notFound):
		errJSON.Kind = KindExchangeRateNotFound
		errJSON.Details["from"] = symbolOr(notFound.FromSymbol, notFound.From)
		errJSON.Details["to"] = symbolOr(notFound.ToSymbol, notFound.To)
		errJSON.Details["date"] = notFound.Date.String()
		errJSON.Details["algorithm"] = notFound.Algorithm.String()

	case stderrors.As(err, &dateRange):
		errJSON.Kind = KindInvalidDateRange
		if !dateRange.Start.IsZero() {
			errJSON.Details["start"] = dateRange.Start.String()
		}
		if !dateRange.End.IsZero() {
			errJSON.Details["end"] = dateRange.End.String()
		}
		errJSON.Details["reason"] = dateRange.Reason

	case stderrors.As(err, &decodeErr):
		errJSON.Kind = KindDecode
		errJSON.Position = &PositionJSON{Filename: decodeErr.Filename, Line: decodeErr.Line}
	}

	if len(errJSON.Details) == 0 {
		errJSON.Details = nil
	}
	return errJSON
}

func symbolOr(symbol string, id ledger.CurrencyID) string {
	if symbol != "" {
		return symbol
	}
	return fmt.Sprintf("#%d", id)
}
