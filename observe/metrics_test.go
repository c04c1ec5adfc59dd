package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_CountsOperations(t *testing.T) {
	reader, mp := newTestMeter()
	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("newMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordExecution(ctx, OpMeta{Kind: KindTool, Name: "add"}, 2*time.Millisecond, nil)
	m.RecordExecution(ctx, OpMeta{Kind: KindTool, Name: "add"}, 3*time.Millisecond, nil)
	m.RecordExecution(ctx, OpMeta{Kind: KindTool, Name: "bump_counter"}, time.Millisecond, errors.New("redis down"))

	rm := collect(t, reader)

	total := findMetric(rm, "mcp.op.total")
	if total == nil {
		t.Fatal("mcp.op.total not found")
	}
	if got := sumOf(t, total); got != 3 {
		t.Errorf("mcp.op.total = %d, want 3", got)
	}

	errs := findMetric(rm, "mcp.op.errors")
	if errs == nil {
		t.Fatal("mcp.op.errors not found")
	}
	if got := sumOf(t, errs); got != 1 {
		t.Errorf("mcp.op.errors = %d, want 1", got)
	}
}

func TestMetrics_Attributes(t *testing.T) {
	reader, mp := newTestMeter()
	m, _ := newMetrics(mp.Meter("test"))

	m.RecordExecution(context.Background(), OpMeta{Kind: KindResource, Name: "hello", URI: "hello://ada"}, time.Millisecond, nil)

	sum := findMetric(collect(t, reader), "mcp.op.total").Data.(metricdata.Sum[int64])
	attrs := sum.DataPoints[0].Attributes
	if v, _ := attrs.Value(attribute.Key("mcp.kind")); v.AsString() != "resource" {
		t.Errorf("mcp.kind = %q", v.AsString())
	}
	if v, _ := attrs.Value(attribute.Key("mcp.name")); v.AsString() != "hello" {
		t.Errorf("mcp.name = %q", v.AsString())
	}
	if attrs.HasValue(attribute.Key("mcp.uri")) {
		t.Error("mcp.uri must not be a metric attribute")
	}
}

func TestMetrics_DurationHistogram(t *testing.T) {
	reader, mp := newTestMeter()
	m, _ := newMetrics(mp.Meter("test"))

	m.RecordExecution(context.Background(), OpMeta{Name: "long_task"}, 1500*time.Microsecond, nil)

	found := findMetric(collect(t, reader), "mcp.op.duration_ms")
	if found == nil {
		t.Fatal("mcp.op.duration_ms not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if hist.DataPoints[0].Sum != 1.5 {
		t.Errorf("duration sum = %v, want 1.5", hist.DataPoints[0].Sum)
	}
}

func TestAuthMetrics_RecordDecision(t *testing.T) {
	reader, mp := newTestMeter()
	am, err := NewAuthMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewAuthMetrics() error = %v", err)
	}

	ctx := context.Background()
	am.RecordDecision(ctx, "allowed", "", "")
	am.RecordDecision(ctx, "denied", "invalid_token", "expired")
	am.RecordDecision(ctx, "denied", "invalid_token", "expired")

	found := findMetric(collect(t, reader), "auth.decisions")
	if found == nil {
		t.Fatal("auth.decisions not found")
	}
	sum := found.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Fatalf("got %d series, want 2", len(sum.DataPoints))
	}
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value("auth.outcome")
		switch outcome.AsString() {
		case "allowed":
			if dp.Value != 1 || dp.Attributes.HasValue("auth.code") {
				t.Errorf("allowed series = %d %v", dp.Value, dp.Attributes)
			}
		case "denied":
			reason, _ := dp.Attributes.Value("auth.reason")
			if dp.Value != 2 || reason.AsString() != "expired" {
				t.Errorf("denied series = %d reason %q", dp.Value, reason.AsString())
			}
		default:
			t.Errorf("unexpected outcome %q", outcome.AsString())
		}
	}
}

func TestNoopMetrics_NoPanic(t *testing.T) {
	noopMetrics{}.RecordExecution(context.Background(), OpMeta{Name: "noop"}, time.Millisecond, errors.New("x"))
}
