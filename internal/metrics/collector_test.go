package metrics

import (
	"strings"
	"testing"
)

func TestCounter_SameKeySameInstance(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "help", `k="v"`)
	b := c.Counter("x_total", "help", `k="v"`)
	if a != b {
		t.Fatal("expected the same counter for the same name and labels")
	}
	a.Inc()
	b.Add(2)
	if a.Value() != 3 {
		t.Fatalf("expected 3, got %d", a.Value())
	}
}

func TestHistogram_Buckets(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("lat_seconds", "latency", "", []float64{5, 1})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(10)

	var sb strings.Builder
	if err := c.Write(&sb); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := sb.String()
	for _, want := range []string{
		`lat_seconds_bucket{le="1"} 1`,
		`lat_seconds_bucket{le="5"} 2`,
		"lat_seconds_count 3",
		"# TYPE lat_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWrite_CountersWithLabels(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("tool_total", "tools", Labels("tool", "read_rule", "kind", "ok")).Inc()
	c.Counter("tool_total", "tools", Labels("tool", "read_rule", "kind", "not_found")).Add(2)
	c.Gauge("depth", "depth", "").Set(4)

	var sb strings.Builder
	if err := c.Write(&sb); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := sb.String()
	if strings.Count(out, "# HELP tool_total") != 1 {
		t.Fatalf("help line should be written once:\n%s", out)
	}
	for _, want := range []string{
		`tool_total{tool="read_rule",kind="not_found"} 2`,
		`tool_total{tool="read_rule",kind="ok"} 1`,
		"depth 4",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabels(t *testing.T) {
	if got := Labels("a", "1", "b", `x"y`); got != `a="1",b="x\"y"` {
		t.Fatalf("unexpected labels %q", got)
	}
	if got := Labels(); got != "" {
		t.Fatalf("expected empty labels, got %q", got)
	}
}
