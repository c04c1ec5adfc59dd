package auth

import (
	"context"
)

type contextKey int

const (
	claimsKey contextKey = iota
)

// WithClaims returns a new context carrying verified claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the claims attached by the gate.
// Returns nil if the request passed through without a check.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// SubjectFromContext returns the subject of the attached claims, or "".
func SubjectFromContext(ctx context.Context) string {
	c := ClaimsFromContext(ctx)
	if c == nil {
		return ""
	}
	return c.Subject
}
