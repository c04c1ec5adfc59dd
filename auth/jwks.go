package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/mcpgate/resilience"
)

// JWKSConfig configures the JWKS key resolver.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long a fetched key set is trusted before the next
	// lookup refreshes it.
	// Default: 1 hour
	CacheTTL time.Duration

	// FetchTimeout bounds a single fetch of the key set.
	// Default: 10 seconds
	FetchTimeout time.Duration

	// HTTPClient is the HTTP client to use for requests.
	// Default: http.DefaultClient (FetchTimeout applies either way)
	HTTPClient *http.Client

	// MinRefreshInterval is how old a fresh snapshot must be before a
	// lookup for an unknown key ID may refetch it. Unknown key IDs inside
	// the interval fail with ErrKeyNotFound without a request.
	// Default: 30 seconds
	MinRefreshInterval time.Duration

	// Breaker, when set, guards the endpoint so a failing provider is not
	// hit on every request.
	Breaker *resilience.CircuitBreaker

	// Now overrides the clock used for cache expiry.
	Now func() time.Time
}

// keySet is an immutable snapshot of the published keys.
type keySet struct {
	keys      map[string]*SigningKey
	fetchedAt time.Time
}

// JWKSResolver resolves signing keys from a JWKS endpoint.
//
// Readers load the current snapshot without locking. A miss or an expired
// snapshot triggers one refresh; concurrent refreshes share a single fetch.
type JWKSResolver struct {
	config   JWKSConfig
	snapshot atomic.Pointer[keySet]
	sfGroup  singleflight.Group
}

// NewJWKSResolver creates a JWKS resolver. No request is made until the
// first Resolve.
func NewJWKSResolver(config JWKSConfig) *JWKSResolver {
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 10 * time.Second
	}
	if config.MinRefreshInterval <= 0 {
		config.MinRefreshInterval = 30 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &JWKSResolver{config: config}
}

// Resolve returns the key for keyID, refreshing the key set at most once.
// A miss against a snapshot younger than MinRefreshInterval does not
// refresh.
//
// If the refresh fails but a previous snapshot still holds keyID, that key
// is returned. If the caller's context ends while a refresh is in flight,
// Resolve returns ctx.Err() and the refresh keeps running for later callers.
func (r *JWKSResolver) Resolve(ctx context.Context, keyID string) (*SigningKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current := r.snapshot.Load()
	if current != nil && r.fresh(current) {
		if key, ok := current.keys[keyID]; ok {
			return key, nil
		}
		if r.config.Now().Sub(current.fetchedAt) < r.config.MinRefreshInterval {
			return nil, &KeyResolutionError{KeyID: keyID, Err: ErrKeyNotFound}
		}
	}

	refreshed, err := r.refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if current != nil {
			if key, ok := current.keys[keyID]; ok {
				return key, nil
			}
		}
		return nil, &KeyResolutionError{KeyID: keyID, Err: err}
	}

	key, ok := refreshed.keys[keyID]
	if !ok {
		return nil, &KeyResolutionError{KeyID: keyID, Err: ErrKeyNotFound}
	}
	return key, nil
}

// KeyIDs returns the key IDs in the current snapshot.
func (r *JWKSResolver) KeyIDs() []string {
	current := r.snapshot.Load()
	if current == nil {
		return nil
	}
	ids := make([]string, 0, len(current.keys))
	for id := range current.keys {
		ids = append(ids, id)
	}
	return ids
}

func (r *JWKSResolver) fresh(set *keySet) bool {
	return r.config.Now().Sub(set.fetchedAt) < r.config.CacheTTL
}

// refresh joins or starts the shared fetch. The fetch itself is detached
// from the caller so one cancelled request cannot fail everyone waiting.
func (r *JWKSResolver) refresh(ctx context.Context) (*keySet, error) {
	ch := r.sfGroup.DoChan("jwks", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.FetchTimeout)
		defer cancel()

		set, err := r.fetchGuarded(fetchCtx)
		if err != nil {
			return nil, err
		}
		r.snapshot.Store(set)
		return set, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keySet), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *JWKSResolver) fetchGuarded(ctx context.Context) (*keySet, error) {
	if r.config.Breaker == nil {
		return r.fetch(ctx)
	}
	var set *keySet
	err := r.config.Breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		set, err = r.fetch(ctx)
		return err
	})
	return set, err
}

func (r *JWKSResolver) fetch(ctx context.Context) (*keySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJWKS, err)
	}
	if doc.Keys == nil {
		return nil, fmt.Errorf("%w: no keys member", ErrMalformedJWKS)
	}

	keys := make(map[string]*SigningKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		pub, err := parseRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		alg := jwk.Alg
		if alg == "" {
			alg = "RS256"
		}
		keys[jwk.Kid] = &SigningKey{KeyID: jwk.Kid, Key: pub, Algorithm: alg}
	}

	return &keySet{keys: keys, fetchedAt: r.config.Now()}, nil
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseRSAPublicKey(k jwk) (*rsa.PublicKey, error) {
	if k.N == "" || k.E == "" {
		return nil, fmt.Errorf("jwk %q: missing modulus or exponent", k.Kid)
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("jwk %q: decode n: %w", k.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("jwk %q: decode e: %w", k.Kid, err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("jwk %q: unsupported exponent", k.Kid)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}

var _ KeyResolver = (*JWKSResolver)(nil)
