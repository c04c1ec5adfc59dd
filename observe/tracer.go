package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Kind is the MCP primitive an operation belongs to.
type Kind string

const (
	KindTool     Kind = "tool"
	KindResource Kind = "resource"
	KindPrompt   Kind = "prompt"
)

// OpMeta identifies one MCP operation for telemetry.
type OpMeta struct {
	Kind Kind   // tool, resource or prompt
	Name string // registered name (required)
	URI  string // concrete URI for resource reads (optional)
}

// SpanName returns the span name for this operation.
// Format: mcp.<kind>.<name>
func (m OpMeta) SpanName() string {
	return "mcp." + string(m.kind()) + "." + m.Name
}

// ID returns "<kind>/<name>".
func (m OpMeta) ID() string {
	return string(m.kind()) + "/" + m.Name
}

func (m OpMeta) kind() Kind {
	if m.Kind == "" {
		return KindTool
	}
	return m.Kind
}

func (m OpMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("mcp.kind", string(m.kind())),
		attribute.String("mcp.name", m.Name),
	}
	if m.URI != "" {
		attrs = append(attrs, attribute.String("mcp.uri", m.URI))
	}
	return attrs
}

// Tracer starts and ends one span per MCP operation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("mcp.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("mcp.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
