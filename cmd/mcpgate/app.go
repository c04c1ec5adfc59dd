package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/mcpgate/auth"
	"github.com/jonwraymond/mcpgate/config"
	"github.com/jonwraymond/mcpgate/health"
	"github.com/jonwraymond/mcpgate/mcpserver"
	"github.com/jonwraymond/mcpgate/observe"
	"github.com/jonwraymond/mcpgate/resilience"
	"github.com/jonwraymond/mcpgate/store"
	"github.com/jonwraymond/mcpgate/tools"
)

// counterStore is what the builtins and the health check need from a store.
type counterStore interface {
	store.Counter
	store.Pinger
}

// app is the assembled server, ready to be mounted on listeners.
type app struct {
	router    http.Handler
	mcp       *mcpserver.Server
	updates   *store.Broadcaster
	forwarded []string
	storeName string
	close     func() error
}

// newApp wires the store, catalogue, MCP binding, auth gate and health
// checks described by cfg.
func newApp(ctx context.Context, cfg *config.Config, obs observe.Observer) (*app, error) {
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}
	authMetrics, err := observe.NewAuthMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("auth metrics: %w", err)
	}

	counter, storeName, closeStore, err := openCounter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	updates := store.NewBroadcaster(store.BroadcasterConfig{Logger: logger})
	reg := tools.NewRegistry(tools.Config{Middleware: mw})
	err = tools.RegisterBuiltins(reg, tools.BuiltinsConfig{
		Counter: counter,
		Updates: updates,
		Info: tools.ServerInfo{
			Deployment:   cfg.Environment,
			Build:        cfg.Build,
			AuthRequired: cfg.AuthRequired,
			Issuer:       cfg.Issuer(),
			Audiences:    cfg.Audiences,
		},
		Logger: logger,
	})
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	srv := mcpserver.New(reg, mcpserver.Config{Name: serviceName, Version: cfg.Build, Logger: logger})

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: cfg.StoreTimeout})
	agg.Register(storeName, store.NewHealthChecker(storeName, counter))

	gate := auth.NewGate(auth.GateConfig{
		Enabled:           cfg.AuthRequired,
		ProtectedPrefixes: []string{"/mcp"},
		Validator:         newValidator(cfg, logger),
		Policy: auth.Policy{
			RequiredScopes: cfg.RequiredScopes,
			RequiredRoles:  cfg.RequiredRoles,
		},
		Logger:   logger,
		Recorder: authMetrics,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, gate.Middleware)
	r.Get("/healthz", health.HealthzHandler(agg, health.HandlerConfig{Logger: logger}))
	r.Get("/livez", health.LivezHandler())
	r.Handle("/mcp", srv.Handler(nil))

	return &app{
		router:    r,
		mcp:       srv,
		updates:   updates,
		forwarded: []string{tools.CounterURI},
		storeName: storeName,
		close:     closeStore,
	}, nil
}

// Close releases the store connection.
func (a *app) Close() error {
	return a.close()
}

// openCounter returns the Redis-backed store when REDIS_URL is set and the
// in-process store otherwise. An unreachable Redis is not fatal: the
// server starts and /healthz reports the check as false.
func openCounter(ctx context.Context, cfg *config.Config, logger observe.Logger) (counterStore, string, func() error, error) {
	if cfg.RedisURL == "" {
		return store.NewMemoryCounter(), "memory", func() error { return nil }, nil
	}
	counter, err := store.OpenRedis(cfg.RedisURL, store.RedisConfig{Timeout: cfg.StoreTimeout})
	if err != nil {
		return nil, "", nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	if err := counter.Ping(ctx); err != nil {
		logger.Warn(ctx, "redis unreachable at startup", observe.Field{Key: "error", Value: err.Error()})
	}
	return counter, "redis", counter.Close, nil
}

// newValidator builds the Entra ID token validator, or returns nil when no
// tenant is configured.
func newValidator(cfg *config.Config, logger observe.Logger) auth.TokenValidator {
	if cfg.TenantID == "" {
		return nil
	}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name: "jwks",
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn(context.Background(), "circuit state changed",
				observe.Field{Key: "circuit", Value: name},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})
	keys := auth.NewJWKSResolver(auth.JWKSConfig{
		URL:          cfg.JWKSURL(),
		CacheTTL:     cfg.JWKSCacheTTL,
		FetchTimeout: cfg.JWKSFetchTimeout,
		Breaker:      breaker,
	})
	return auth.NewJWTValidator(auth.ValidatorConfig{
		Issuer:    cfg.Issuer(),
		Audiences: cfg.Audiences,
	}, keys)
}
