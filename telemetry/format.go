package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/robinvdvleuten/saldo/output"
)

// slowOperation is the duration from which a timing is highlighted.
const slowOperation = 100 * time.Millisecond

// formatTimingTree outputs the timing tree in a hierarchical format.
// Example output:
//
//	report: 125ms
//	├─ load data.toml: 85ms
//	│  └─ decode: 45ms
//	└─ ledger.calculate: 40ms
func formatTimingTree(w io.Writer, root *timerNode, styles *output.Styles) {
	duration := formatDuration(root.duration())

	if styles != nil {
		_, _ = fmt.Fprintf(w, "%s: %s\n", styles.Keyword(root.name), duration)
	} else {
		_, _ = fmt.Fprintf(w, "%s: %s\n", root.name, duration)
	}

	for i, child := range root.children {
		formatNode(w, child, "", i == len(root.children)-1, styles)
	}
}

// formatNode recursively formats a node and its children.
func formatNode(w io.Writer, node *timerNode, prefix string, isLast bool, styles *output.Styles) {
	duration := node.duration()

	branch, extension := "├─ ", "│  "
	if isLast {
		branch, extension = "└─ ", "   "
	}

	if styles != nil {
		timing := styles.Timing(formatDuration(duration), duration >= slowOperation)
		_, _ = fmt.Fprintf(w, "%s%s: %s\n", styles.Dim(prefix+branch), node.name, timing)
	} else {
		_, _ = fmt.Fprintf(w, "%s%s%s: %s\n", prefix, branch, node.name, formatDuration(duration))
	}

	childPrefix := prefix + extension
	for i, child := range node.children {
		formatNode(w, child, childPrefix, i == len(node.children)-1, styles)
	}
}

// formatDuration formats a duration for display.
// Shows milliseconds for < 1s, seconds for >= 1s.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		ms := float64(d) / float64(time.Millisecond)
		return fmt.Sprintf("%.0fms", ms)
	}
	s := float64(d) / float64(time.Second)
	return fmt.Sprintf("%.2fs", s)
}
