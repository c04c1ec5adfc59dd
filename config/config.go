package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultAuthority is the Microsoft Entra ID login host.
const DefaultAuthority = "https://login.microsoftonline.com"

// Config holds the server settings. The env tag names the variable each
// field is read from.
type Config struct {
	AuthRequired   bool     `env:"AUTH_REQUIRED"`
	TenantID       string   `env:"ENTRA_TENANT_ID" validate:"required_if=AuthRequired true"`
	Authority      string   `env:"ENTRA_AUTHORITY" validate:"required,url"`
	Audiences      []string `env:"ENTRA_AUDIENCES"`
	RequiredScopes []string `env:"ENTRA_REQUIRED_SCOPES"`
	RequiredRoles  []string `env:"ENTRA_REQUIRED_APP_ROLES"`

	// RedisURL selects the shared counter store. Empty keeps counters in
	// process memory.
	RedisURL     string        `env:"REDIS_URL" validate:"omitempty,url"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" validate:"gt=0"`

	HTTPAddr    string `env:"HTTP_ADDR" validate:"required"`
	MetricsAddr string `env:"METRICS_ADDR"`

	LogLevel        string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	TracingExporter string `env:"TRACING_EXPORTER" validate:"oneof=otlp stdout none"`
	MetricsExporter string `env:"METRICS_EXPORTER" validate:"oneof=otlp prometheus stdout none"`

	Environment string `env:"MCPGATE_ENV"`
	Build       string `env:"MCPGATE_BUILD"`

	JWKSCacheTTL     time.Duration `env:"JWKS_CACHE_TTL" validate:"gt=0"`
	JWKSFetchTimeout time.Duration `env:"JWKS_FETCH_TIMEOUT" validate:"gt=0"`
}

// Issuer is the expected iss claim, or "" when no tenant is configured.
func (c *Config) Issuer() string {
	if c.TenantID == "" {
		return ""
	}
	return strings.TrimRight(c.Authority, "/") + "/" + c.TenantID + "/v2.0"
}

// JWKSURL is the tenant's signing key endpoint, or "" when no tenant is
// configured.
func (c *Config) JWKSURL() string {
	if c.TenantID == "" {
		return ""
	}
	return strings.TrimRight(c.Authority, "/") + "/" + c.TenantID + "/discovery/v2.0/keys"
}

// Validate checks c. Errors wrap ErrInvalidConfig and name the variables
// at fault.
func (c *Config) Validate() error {
	return validate(c)
}

// Option configures Load.
type Option func(*options)

type options struct {
	envFile         string
	envFileRequired bool
	lookup          LookupFunc
	providers       []SecretProvider
}

// WithEnvFile reads variables from path, which must exist. An empty path
// disables env files. Without this option Load reads ./.env if present.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
		o.envFileRequired = path != ""
	}
}

// WithLookup replaces os.LookupEnv as the variable source.
func WithLookup(fn LookupFunc) Option {
	return func(o *options) { o.lookup = fn }
}

// WithSecretProviders adds secret providers next to env and file.
func WithSecretProviders(providers ...SecretProvider) Option {
	return func(o *options) { o.providers = append(o.providers, providers...) }
}

// Load builds a Config from the environment, with defaults for unset
// variables, and validates it.
func Load(ctx context.Context, opts ...Option) (*Config, error) {
	r, err := newReader(ctx, opts)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AuthRequired:     r.boolean("AUTH_REQUIRED", false),
		TenantID:         r.str("ENTRA_TENANT_ID", ""),
		Authority:        r.str("ENTRA_AUTHORITY", DefaultAuthority),
		Audiences:        r.list("ENTRA_AUDIENCES"),
		RequiredScopes:   r.list("ENTRA_REQUIRED_SCOPES"),
		RequiredRoles:    r.list("ENTRA_REQUIRED_APP_ROLES"),
		RedisURL:         r.str("REDIS_URL", ""),
		StoreTimeout:     r.duration("STORE_TIMEOUT", 2*time.Second),
		HTTPAddr:         r.str("HTTP_ADDR", ":8000"),
		MetricsAddr:      r.str("METRICS_ADDR", ":9090"),
		LogLevel:         strings.ToLower(r.str("LOG_LEVEL", "info")),
		TracingExporter:  r.str("TRACING_EXPORTER", "none"),
		MetricsExporter:  r.str("METRICS_EXPORTER", "prometheus"),
		Environment:      r.str("MCPGATE_ENV", "local"),
		Build:            r.str("MCPGATE_BUILD", "dev"),
		JWKSCacheTTL:     r.duration("JWKS_CACHE_TTL", time.Hour),
		JWKSFetchTimeout: r.duration("JWKS_FETCH_TIMEOUT", 10*time.Second),
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader reads typed variables and collects every failure.
type reader struct {
	ctx     context.Context
	lookup  LookupFunc
	secrets *SecretResolver
	errs    []error
}

func newReader(ctx context.Context, opts []Option) (*reader, error) {
	o := options{envFile: ".env", lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	lookup := o.lookup
	if o.envFile != "" {
		fileVars, err := godotenv.Read(o.envFile)
		switch {
		case err == nil:
			lookup = layered(o.lookup, fileVars)
		case errors.Is(err, os.ErrNotExist) && !o.envFileRequired:
		default:
			return nil, fmt.Errorf("config: read env file %s: %w", o.envFile, err)
		}
	}

	providers := append([]SecretProvider{EnvProvider{Lookup: lookup}, FileProvider{}}, o.providers...)
	return &reader{
		ctx:     ctx,
		lookup:  lookup,
		secrets: NewSecretResolver(lookup, providers...),
	}, nil
}

// layered prefers primary and falls back to the env file values.
func layered(primary LookupFunc, file map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
}

func (r *reader) str(key, def string) string {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return def
	}
	resolved, err := r.secrets.Resolve(r.ctx, v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return resolved
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, key, v))
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidValue, key, v))
		return def
	}
	return d
}

// list splits a comma-separated variable, dropping empty items.
func (r *reader) list(key string) []string {
	v := r.str(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *reader) err() error {
	return errors.Join(r.errs...)
}

var validate = newValidator()

func newValidator() func(any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return func(s any) error {
		err := v.Struct(s)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		t := reflect.Indirect(reflect.ValueOf(s)).Type()
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(t, fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
}

// describe renders fe with variable names in place of Go field names.
func describe(t reflect.Type, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_if":
		field, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is required when %s=%s", fe.Field(), envName(t, field), value)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", fe.Field(), envName(t, fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", fe.Field(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func envName(t reflect.Type, field string) string {
	if f, ok := t.FieldByName(field); ok {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
	}
	return field
}
