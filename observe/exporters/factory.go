// Package exporters builds OpenTelemetry exporters by name.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrEndpointNotConfigured is returned when an OTLP exporter is
	// requested without an endpoint in the environment.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")
)

type options struct {
	writer     io.Writer
	registerer prometheus.Registerer
	getenv     func(string) string
}

// Option customizes exporter construction.
type Option func(*options)

// WithWriter sets the destination of the stdout exporters.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithRegisterer sets the registry the Prometheus reader registers with.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

func withGetenv(fn func(string) string) Option {
	return func(o *options) { o.getenv = fn }
}

func newOptions(opts []Option) options {
	o := options{writer: os.Stdout, getenv: os.Getenv}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// endpoint returns the first non-empty environment value among keys.
func (o options) endpoint(keys ...string) (string, error) {
	for _, k := range keys {
		if v := o.getenv(k); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: set one of %v", ErrEndpointNotConfigured, keys)
}

// NewTracingExporter creates a span exporter. Supported names are stdout,
// otlp and none. "none" and "" return a nil exporter.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	o := newOptions(opts)
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(o.writer))
	case "otlp":
		if _, err := o.endpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader creates a metrics reader. Supported names are stdout,
// otlp, prometheus and none. "none" and "" return a nil reader.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	o := newOptions(opts)
	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if _, err := o.endpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "prometheus":
		var popts []otelprom.Option
		if o.registerer != nil {
			popts = append(popts, otelprom.WithRegisterer(o.registerer))
		}
		exp, err := otelprom.New(popts...)
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}
