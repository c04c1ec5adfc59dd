package exporters

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func emptyEnv(string) string { return "" }

func TestNewTracingExporter_UnknownName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "jaeger")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("error = %v, want ErrUnknownExporter", err)
	}
}

func TestNewTracingExporter_Stdout(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewTracingExporter(context.Background(), "stdout", WithWriter(&buf))
	if err != nil {
		t.Fatalf("NewTracingExporter() error = %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
	_ = exp.Shutdown(context.Background())
}

func TestNewTracingExporter_None(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name)
		if err != nil || exp != nil {
			t.Errorf("NewTracingExporter(%q) = %v, %v; want nil, nil", name, exp, err)
		}
	}
}

func TestNewTracingExporter_OTLPNeedsEndpoint(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "otlp", withGetenv(emptyEnv))
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("error = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestNewMetricsReader_UnknownName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "statsd")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("error = %v, want ErrUnknownExporter", err)
	}
}

func TestNewMetricsReader_Stdout(t *testing.T) {
	var buf bytes.Buffer
	reader, err := NewMetricsReader(context.Background(), "stdout", WithWriter(&buf))
	if err != nil {
		t.Fatalf("NewMetricsReader() error = %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
	_ = reader.Shutdown(context.Background())
}

func TestNewMetricsReader_OTLPNeedsEndpoint(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "otlp", withGetenv(emptyEnv))
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("error = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestNewMetricsReader_PrometheusRegistersCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reader, err := NewMetricsReader(context.Background(), "prometheus", WithRegisterer(reg))
	if err != nil {
		t.Fatalf("NewMetricsReader() error = %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	counter, err := mp.Meter("test").Int64Counter("demo_requests")
	if err != nil {
		t.Fatalf("Int64Counter() error = %v", err)
	}
	counter.Add(context.Background(), 3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "demo_requests") {
			return
		}
	}
	t.Errorf("demo_requests not exposed on the registry; got %d families", len(families))
}

func TestOptions_EndpointFallsThroughEmptyKeys(t *testing.T) {
	env := map[string]string{"A": "", "B": "http://collector:4317"}
	o := newOptions([]Option{withGetenv(func(k string) string { return env[k] })})

	got, err := o.endpoint("A", "B")
	if err != nil {
		t.Fatalf("endpoint() error = %v", err)
	}
	if got != "http://collector:4317" {
		t.Errorf("endpoint() = %q", got)
	}
}
