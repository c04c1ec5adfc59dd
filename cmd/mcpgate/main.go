// mcpgate serves the MCP tool catalogue over streamable HTTP at /mcp,
// behind Microsoft Entra ID bearer authentication when AUTH_REQUIRED=true.
//
// Configuration comes from the environment and an optional .env file; the
// flags below override the matching variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/jonwraymond/mcpgate/config"
	"github.com/jonwraymond/mcpgate/observe"
)

const serviceName = "mcpgate"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile     string
		addr        string
		metricsAddr string
		logLevel    string
	)
	flagSet := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "env file to read before the process environment")
	flagSet.StringVar(&addr, "addr", "", "listen address for the MCP endpoint (overrides HTTP_ADDR)")
	flagSet.StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics (overrides METRICS_ADDR)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []config.Option
	if flagSet.Changed("env-file") {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	promRegistry := prometheus.NewRegistry()
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: serviceName,
		Version:     cfg.Build,
		Environment: cfg.Environment,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.TracingExporter != "none",
			Exporter:  cfg.TracingExporter,
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:    cfg.MetricsExporter != "none",
			Exporter:   cfg.MetricsExporter,
			Registerer: promRegistry,
		},
		Logging: observe.LoggingConfig{Enabled: true, Level: cfg.LogLevel},
	})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	gw, err := newApp(ctx, cfg, obs)
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()
	go gw.mcp.ForwardUpdates(ctx, gw.updates, gw.forwarded...)

	servers := []*http.Server{{
		Addr:              cfg.HTTPAddr,
		Handler:           gw.router,
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.MetricsExporter == "prometheus" && cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: srv.Addr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}()
	}
	logger.Info(ctx, "mcpgate started",
		observe.Field{Key: "auth_required", Value: cfg.AuthRequired},
		observe.Field{Key: "store", Value: gw.storeName},
		observe.Field{Key: "env", Value: cfg.Environment},
		observe.Field{Key: "build", Value: cfg.Build},
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "shutdown", observe.Field{Key: "addr", Value: srv.Addr}, observe.Field{Key: "error", Value: err.Error()})
		}
	}
	logger.Info(shutdownCtx, "mcpgate stopped")
	return runErr
}
