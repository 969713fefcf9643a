package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeClock advances by step on every call.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestNoOpCollector(t *testing.T) {
	collector := noOpCollector{}

	timer := collector.Start("test")
	timer.End()

	child := timer.Child("child")
	child.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	if buf.Len() != 0 {
		t.Errorf("NoOp collector should produce no output, got: %s", buf.String())
	}
}

func TestFromContextReturnsNoOpWhenMissing(t *testing.T) {
	collector := FromContext(context.Background())

	if collector == nil {
		t.Fatal("FromContext should never return nil")
	}
	if _, ok := collector.(noOpCollector); !ok {
		t.Errorf("FromContext should return noOpCollector when none present, got: %T", collector)
	}
}

func TestWithCollector(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)

	retrieved, ok := FromContext(ctx).(*TimingCollector)
	if !ok || retrieved != collector {
		t.Error("FromContext should return the same collector that was added")
	}
}

func TestTimingCollectorBasic(t *testing.T) {
	collector := NewTimingCollector()
	collector.now = fakeClock(10 * time.Millisecond)

	timer := collector.Start("Operation")
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	if got, want := buf.String(), "Operation: 10ms\n"; got != want {
		t.Errorf("Report() = %q, want %q", got, want)
	}
}

func TestTimingCollectorHierarchical(t *testing.T) {
	collector := NewTimingCollector()
	collector.now = fakeClock(5 * time.Millisecond)

	root := collector.Start("Total")
	child := root.Child("Child")
	child.End()
	child2 := root.Child("Child 2")
	child2.End()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	output := buf.String()

	for _, name := range []string{"Total", "Child", "Child 2"} {
		if !strings.Contains(output, name) {
			t.Errorf("Output should contain %q, got: %s", name, output)
		}
	}
	if !strings.Contains(output, "├─ Child") || !strings.Contains(output, "└─ Child 2") {
		t.Errorf("Output should contain tree structure, got: %s", output)
	}
}

func TestTimingCollectorDeepNesting(t *testing.T) {
	collector := NewTimingCollector()
	collector.now = fakeClock(time.Millisecond)

	t1 := collector.Start("Level 1")
	t2 := t1.Child("Level 2")
	t3 := t2.Child("Level 3")
	t3.End()
	t2.End()
	t1.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	found := false
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "Level 3") {
			found = true
			if !strings.HasPrefix(line, "   └─ ") {
				t.Errorf("Level 3 should be indented, got: %q", line)
			}
		}
	}
	if !found {
		t.Error("Should find Level 3 in output")
	}
}

func TestStartTimerNestsThroughContext(t *testing.T) {
	collector := NewTimingCollector()
	collector.now = fakeClock(time.Millisecond)
	ctx := WithCollector(context.Background(), collector)

	ctx, root := StartTimer(ctx, "report")
	_, a := StartTimer(ctx, "flow")
	_, b := StartTimer(ctx, "share")
	b.End()
	a.End()
	root.End()

	if len(collector.roots) != 1 {
		t.Fatalf("expected a single root, got %d", len(collector.roots))
	}
	if got := len(collector.roots[0].children); got != 2 {
		t.Errorf("expected 2 siblings under root, got %d", got)
	}
}

func TestTimerEndTwiceKeepsFirst(t *testing.T) {
	collector := NewTimingCollector()
	collector.now = fakeClock(time.Millisecond)

	timer := collector.Start("op")
	timer.End()
	first := collector.roots[0].end
	timer.End()

	if !collector.roots[0].end.Equal(first) {
		t.Error("second End() should not move the end time")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{1 * time.Millisecond, "1ms"},
		{10 * time.Millisecond, "10ms"},
		{100 * time.Millisecond, "100ms"},
		{999 * time.Millisecond, "999ms"},
		{1 * time.Second, "1.00s"},
		{1500 * time.Millisecond, "1.50s"},
		{2 * time.Second, "2.00s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.duration); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
		}
	}
}

func TestTimingCollectorEmptyReport(t *testing.T) {
	collector := NewTimingCollector()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	if buf.Len() != 0 {
		t.Errorf("Empty collector should produce no output, got: %s", buf.String())
	}
}

func TestPrometheusCollector(t *testing.T) {
	collector := NewPrometheusCollector("saldo")

	timer := collector.Start("ledger.calculate")
	timer.Child("rates.resolve").End()
	timer.End()
	timer.End()

	if got := collector.Count("ledger.calculate"); got != 1 {
		t.Errorf("Count(ledger.calculate) = %v, want 1", got)
	}
	if got := collector.Count("rates.resolve"); got != 1 {
		t.Errorf("Count(rates.resolve) = %v, want 1", got)
	}

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	if !strings.Contains(buf.String(), "ledger.calculate: 1 ×") {
		t.Errorf("Report() should list operations, got: %s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "saldo.prom")
	if err := collector.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `saldo_operations_total{operation="ledger.calculate"} 1`) {
		t.Errorf("textfile missing counter, got: %s", data)
	}
}

func TestMultiCollector(t *testing.T) {
	timing := NewTimingCollector()
	timing.now = fakeClock(time.Millisecond)
	prom := NewPrometheusCollector("saldo")

	collector := Multi(timing, prom)
	timer := collector.Start("load")
	timer.Child("decode").End()
	timer.End()

	if prom.Count("decode") != 1 {
		t.Error("child timer should reach the prometheus collector")
	}
	if len(timing.roots) != 1 || len(timing.roots[0].children) != 1 {
		t.Error("child timer should nest in the timing collector")
	}
}
