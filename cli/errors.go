package cli

import (
	stderrors "errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robinvdvleuten/saldo/errors"
	"github.com/robinvdvleuten/saldo/ledger"
	"github.com/robinvdvleuten/saldo/loader"
)

var (
	errMarkerStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling and source context.
type ErrorRenderer struct {
	source []byte
	text   *errors.TextFormatter
}

// NewErrorRenderer creates a renderer with source content for context.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	return &ErrorRenderer{source: source, text: errors.NewTextFormatter()}
}

// Render formats a single error with styling and context.
func (r *ErrorRenderer) Render(err error) string {
	var decodeErr *loader.DecodeError
	if stderrors.As(err, &decodeErr) && decodeErr.Line > 0 && r.source != nil {
		return r.renderWithSourceContext(decodeErr.Line, err.Error(), r.source)
	}

	var verrs *ledger.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs.Errors) > 1 {
		return r.RenderAll(verrs.Errors)
	}

	// The first line is the message, anything after it is a hint.
	message, hint, _ := strings.Cut(r.text.Format(err), "\n\n")
	if hint == "" {
		return errorStyle.Render(message)
	}
	return errorStyle.Render(message) + "\n\n" + errContextStyle.Render(hint)
}

// RenderAll formats multiple errors, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(r.Render(err))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

func (r *ErrorRenderer) renderWithSourceContext(line int, message string, sourceContent []byte) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	startLine := line - 3
	endLine := line

	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(sourceLines) {
		endLine = len(sourceLines) - 1
	}

	for i := startLine; i <= endLine; i++ {
		if i == line-1 {
			buf.WriteString(errMarkerStyle.Render(" > "))
		} else {
			buf.WriteString("   ")
		}
		buf.WriteString(errContextStyle.Render(sourceLines[i]))
		buf.WriteByte('\n')
	}

	return buf.String()
}
