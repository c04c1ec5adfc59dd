package observe

import (
	"context"
	"time"
)

// ExecuteFunc runs one MCP operation.
type ExecuteFunc func(ctx context.Context, op OpMeta, input any) (any, error)

// Middleware wraps MCP operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a thread-safe ExecuteFunc.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
//   - Ownership: input and output values pass through unmodified.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Wrap instruments fn.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, op OpMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := time.Now()

		result, err := fn(ctx, op, input)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, op, duration, err)

		logger := m.logger.WithOp(op)
		fields := []Field{{Key: "duration_ms", Value: milliseconds(duration)}}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "operation failed", fields...)
		} else {
			logger.Info(ctx, "operation completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver builds a Middleware on obs's tracer, meter and logger.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
