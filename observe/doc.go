// Package observe provides logging, tracing and metrics for mcpgate.
//
// Logging is backed by zap and exposed through the small Logger interface
// so that auth, store and tools depend on a stable API rather than on the
// logging library. Tracing and metrics are OpenTelemetry; the Prometheus
// exporter registers with a client_golang registry that cmd/mcpgate serves
// on its metrics listener.
//
// Every MCP operation (tool call, resource read, prompt render) runs through
// Middleware, which records one span, one set of metrics and one log entry
// per operation, keyed by OpMeta.
package observe
