package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-operation counters and latency.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics registers the operation instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"mcp.op.total",
		metric.WithDescription("Total number of MCP operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"mcp.op.errors",
		metric.WithDescription("Total number of failed MCP operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"mcp.op.duration_ms",
		metric.WithDescription("MCP operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	// URI is left off; resource template reads would explode cardinality.
	opt := metric.WithAttributes(
		attribute.String("mcp.kind", string(meta.kind())),
		attribute.String("mcp.name", meta.Name),
	)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, milliseconds(duration), opt)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type noopMetrics struct{}

func (noopMetrics) RecordExecution(context.Context, OpMeta, time.Duration, error) {}

// AuthMetrics counts authentication decisions. It satisfies
// auth.DecisionRecorder.
type AuthMetrics struct {
	decisions metric.Int64Counter
}

// NewAuthMetrics registers the auth.decisions counter on meter.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	decisions, err := meter.Int64Counter(
		"auth.decisions",
		metric.WithDescription("Authentication gate decisions by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{decisions: decisions}, nil
}

// RecordDecision counts one gate decision. code and reason are empty for
// requests that were allowed or passed through.
func (m *AuthMetrics) RecordDecision(ctx context.Context, outcome, code, reason string) {
	attrs := []attribute.KeyValue{attribute.String("auth.outcome", outcome)}
	if code != "" {
		attrs = append(attrs, attribute.String("auth.code", code))
	}
	if reason != "" {
		attrs = append(attrs, attribute.String("auth.reason", reason))
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}
