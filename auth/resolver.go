package auth

import (
	"context"
	"crypto/rsa"
)

// SigningKey is one verification key published by the identity provider.
type SigningKey struct {
	KeyID     string
	Key       *rsa.PublicKey
	Algorithm string
}

// KeyResolver returns the signing key for a key ID.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: an unknown key ID yields an error matching ErrKeyNotFound; any
//     other failure should be a *KeyResolutionError.
type KeyResolver interface {
	Resolve(ctx context.Context, keyID string) (*SigningKey, error)
}

// StaticKeyResolver serves a fixed set of keys. Useful for tests and for
// deployments that pin keys out of band.
type StaticKeyResolver struct {
	keys map[string]*SigningKey
}

// NewStaticKeyResolver creates a resolver over the given keys.
func NewStaticKeyResolver(keys ...*SigningKey) *StaticKeyResolver {
	m := make(map[string]*SigningKey, len(keys))
	for _, k := range keys {
		m[k.KeyID] = k
	}
	return &StaticKeyResolver{keys: m}
}

// Resolve returns the key registered under keyID.
func (r *StaticKeyResolver) Resolve(ctx context.Context, keyID string) (*SigningKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k, ok := r.keys[keyID]; ok {
		return k, nil
	}
	return nil, &KeyResolutionError{KeyID: keyID, Err: ErrKeyNotFound}
}

// KeyResolverFunc adapts a function to KeyResolver.
type KeyResolverFunc func(ctx context.Context, keyID string) (*SigningKey, error)

// Resolve calls the function.
func (f KeyResolverFunc) Resolve(ctx context.Context, keyID string) (*SigningKey, error) {
	return f(ctx, keyID)
}

var (
	_ KeyResolver = (*StaticKeyResolver)(nil)
	_ KeyResolver = KeyResolverFunc(nil)
)
