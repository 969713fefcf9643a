// Package telemetry provides hierarchical timing collection for operations.
// It allows tracking operation durations in a tree structure for detailed
// performance analysis, and exporting them as Prometheus metrics.
//
// The telemetry system uses the context pattern for non-intrusive instrumentation.
// Collectors are passed through context and can be enabled/disabled without
// changing function signatures.
//
// Example usage:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	ctx, timer := telemetry.StartTimer(ctx, "report.generate")
//	defer timer.End()
//
//	// Nested operations started from ctx appear below "report.generate"
//	_, child := telemetry.StartTimer(ctx, "ledger.calculate")
//	child.End()
//
//	collector.Report(os.Stderr, nil)
package telemetry

import (
	"context"
	"io"

	"github.com/robinvdvleuten/saldo/output"
)

type contextKey int

const (
	collectorKey contextKey = iota
	timerKey
)

// Collector is the main interface for collecting telemetry data.
type Collector interface {
	// Start begins timing an operation and returns a Timer.
	// The timer should be ended with End() when the operation completes.
	Start(name string) Timer

	// Report outputs the collected telemetry to a writer.
	// styles adds terminal styling and may be nil.
	Report(w io.Writer, styles *output.Styles)
}

// Timer tracks a single operation's timing.
// Timers support hierarchical nesting via Child().
type Timer interface {
	// End stops the timer and records the duration.
	End()

	// Child creates a nested timer under this timer.
	Child(name string) Timer
}

// WithCollector adds a collector to a context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext extracts the collector from context.
// If no collector is present, returns a collector that does nothing.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}

// WithTimer makes timer the parent of timers started from the returned context.
func WithTimer(ctx context.Context, timer Timer) context.Context {
	return context.WithValue(ctx, timerKey, timer)
}

// StartTimer starts a timer nested under the context's current timer, or a
// top-level timer on the context's collector when there is none. The
// returned context carries the new timer.
//
// Nesting through the context keeps concurrent operations in their own
// branches of the tree.
func StartTimer(ctx context.Context, name string) (context.Context, Timer) {
	var timer Timer
	if parent, ok := ctx.Value(timerKey).(Timer); ok {
		timer = parent.Child(name)
	} else {
		timer = FromContext(ctx).Start(name)
	}
	return WithTimer(ctx, timer), timer
}
