package telemetry

import (
	"io"

	"github.com/robinvdvleuten/saldo/output"
)

// Multi returns a collector that forwards every timer to all collectors.
// Reports are written one after another.
func Multi(collectors ...Collector) Collector {
	return multiCollector(collectors)
}

type multiCollector []Collector

func (m multiCollector) Start(name string) Timer {
	timers := make(multiTimer, len(m))
	for i, c := range m {
		timers[i] = c.Start(name)
	}
	return timers
}

func (m multiCollector) Report(w io.Writer, styles *output.Styles) {
	for _, c := range m {
		c.Report(w, styles)
	}
}

type multiTimer []Timer

func (m multiTimer) End() {
	for _, t := range m {
		t.End()
	}
}

func (m multiTimer) Child(name string) Timer {
	children := make(multiTimer, len(m))
	for i, t := range m {
		children[i] = t.Child(name)
	}
	return children
}
