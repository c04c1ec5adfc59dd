package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type middlewareHarness struct {
	spans   *tracetest.SpanRecorder
	metrics *metricsImpl
	logs    *bytes.Buffer
	mw      *Middleware
}

func newHarness(t *testing.T) (*middlewareHarness, func() int64) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	reader, mp := newTestMeter()
	metrics, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("newMetrics() error = %v", err)
	}

	var logs bytes.Buffer
	h := &middlewareHarness{
		spans:   spans,
		metrics: metrics,
		logs:    &logs,
		mw:      NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("info", &logs)),
	}
	total := func() int64 {
		m := findMetric(collect(t, reader), "mcp.op.total")
		if m == nil {
			return 0
		}
		return sumOf(t, m)
	}
	return h, total
}

func TestMiddleware_Success(t *testing.T) {
	h, total := newHarness(t)

	wrapped := h.mw.Wrap(func(ctx context.Context, op OpMeta, in any) (any, error) {
		return "15", nil
	})
	got, err := wrapped(context.Background(), OpMeta{Kind: KindTool, Name: "add"}, map[string]any{"a": 7, "b": 8})
	if err != nil {
		t.Fatalf("wrapped() error = %v", err)
	}
	if got != "15" {
		t.Errorf("result = %v, want 15", got)
	}

	if spans := h.spans.Ended(); len(spans) != 1 || spans[0].Name() != "mcp.tool.add" {
		t.Errorf("spans = %v", spans)
	}
	if n := total(); n != 1 {
		t.Errorf("mcp.op.total = %d, want 1", n)
	}

	entries := decodeLines(t, h.logs)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	e := entries[0]
	if e["msg"] != "operation completed" || e["mcp.name"] != "add" {
		t.Errorf("log entry = %v", e)
	}
	if _, ok := e["duration_ms"].(float64); !ok {
		t.Errorf("duration_ms = %v, want a number", e["duration_ms"])
	}
	if _, ok := e["input"]; ok {
		t.Error("input must not be logged")
	}
}

func TestMiddleware_ErrorPropagatesUnchanged(t *testing.T) {
	h, _ := newHarness(t)
	opErr := errors.New("redis down")

	wrapped := h.mw.Wrap(func(ctx context.Context, op OpMeta, in any) (any, error) {
		return nil, opErr
	})
	_, err := wrapped(context.Background(), OpMeta{Name: "bump_counter"}, nil)
	if err != opErr {
		t.Fatalf("error = %v, want %v", err, opErr)
	}

	e := decodeLines(t, h.logs)[0]
	if e["level"] != "error" || e["msg"] != "operation failed" || e["error"] != "redis down" {
		t.Errorf("log entry = %v", e)
	}
}

func TestMiddleware_SpanContextReachesOperation(t *testing.T) {
	h, _ := newHarness(t)

	wrapped := h.mw.Wrap(func(ctx context.Context, op OpMeta, in any) (any, error) {
		h.mw.logger.Info(ctx, "inside")
		return nil, nil
	})
	_, _ = wrapped(context.Background(), OpMeta{Name: "long_task"}, nil)

	inner := decodeLines(t, h.logs)[0]
	if inner["msg"] != "inside" {
		t.Fatalf("first entry = %v", inner)
	}
	if inner["trace_id"] != h.spans.Ended()[0].SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want the operation span's trace", inner["trace_id"])
	}
}

func TestNewMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	wrapped := mw.Wrap(func(ctx context.Context, op OpMeta, in any) (any, error) {
		return in, nil
	})
	got, err := wrapped(context.Background(), OpMeta{Name: "echo"}, "hi")
	if err != nil || got != "hi" {
		t.Errorf("wrapped() = %v, %v", got, err)
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "mcpgate-test"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	if mw == nil {
		t.Fatal("expected middleware")
	}
}
