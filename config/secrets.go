package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// SecretProvider resolves secret references of the form
// secretref:<provider>:<ref>.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type SecretProvider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// EnvProvider resolves secretref:env:<VAR> from the environment.
type EnvProvider struct {
	Lookup LookupFunc
}

// Name returns "env".
func (p EnvProvider) Name() string { return "env" }

// Resolve returns the value of the variable named ref.
func (p EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %q is not set", ErrSecretNotFound, ref)
	}
	return v, nil
}

// FileProvider resolves secretref:file:<path> from file contents, with one
// trailing newline removed. Relative paths are taken from Dir.
type FileProvider struct {
	Dir string
}

// Name returns "file".
func (p FileProvider) Name() string { return "file" }

// Resolve reads the file at ref.
func (p FileProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := ref
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: file %q: %v", ErrSecretNotFound, ref, err)
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

// SecretResolver expands ${VAR} references and resolves secret references
// with its providers.
type SecretResolver struct {
	lookup    LookupFunc
	providers map[string]SecretProvider
}

// NewSecretResolver creates a resolver that reads variables through lookup
// (os.LookupEnv when nil).
func NewSecretResolver(lookup LookupFunc, providers ...SecretProvider) *SecretResolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	r := &SecretResolver{lookup: lookup, providers: make(map[string]SecretProvider)}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Resolve expands value, then replaces every secret reference in it. A value
// that is exactly one reference resolves to the secret alone; references
// embedded in text ("Bearer secretref:env:TOKEN") are replaced in place.
// Resolved secrets must be non-empty.
func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := r.expand(value)
	if err != nil {
		return "", err
	}
	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveOne(ctx, provider, ref)
	}

	matches := inlineSecretRef.FindAllStringSubmatchIndex(expanded, -1)
	out := expanded
	// Replace from the end so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.resolveOne(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}

// ParseSecretRef splits a full secretref:<provider>:<ref> value.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	provider, ref, found := strings.Cut(strings.TrimPrefix(value, prefix), ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var (
	inlineSecretRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)
	envVarRef       = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

func (r *SecretResolver) resolveOne(ctx context.Context, providerName, ref string) (string, error) {
	p, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSecretProvider, providerName)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s:%s resolved to an empty value", ErrSecretNotFound, providerName, ref)
	}
	return v, nil
}

// expand replaces ${VAR} with its value and fails if any VAR is unset.
// "$$" is a literal "$".
func (r *SecretResolver) expand(s string) (string, error) {
	const dollar = "\x00MCPGATE_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	missing := make(map[string]struct{})
	s = envVarRef.ReplaceAllStringFunc(s, func(m string) string {
		key := m[2 : len(m)-1]
		v, ok := r.lookup(key)
		if !ok {
			missing[key] = struct{}{}
		}
		return v
	})
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(keys, ", "))
	}
	return strings.ReplaceAll(s, dollar, "$"), nil
}
