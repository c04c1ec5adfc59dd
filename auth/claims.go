package auth

import (
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified payload of a bearer token.
// Fields the gate depends on are typed; everything else lands in Extra.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time

	// Scopes is the "scp" claim split on whitespace, deduplicated.
	Scopes []string

	// Roles is the "roles" claim, deduplicated.
	Roles []string

	// Extra holds every claim not mapped to a typed field.
	Extra map[string]any
}

// HasScope reports whether the token carries scope s.
func (c *Claims) HasScope(s string) bool {
	return slices.Contains(c.Scopes, s)
}

// HasRole reports whether the token carries app role r.
func (c *Claims) HasRole(r string) bool {
	return slices.Contains(c.Roles, r)
}

// HasAnyScope reports whether at least one of the given scopes is present.
func (c *Claims) HasAnyScope(scopes ...string) bool {
	return slices.ContainsFunc(scopes, c.HasScope)
}

// HasAnyRole reports whether at least one of the given roles is present.
func (c *Claims) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, c.HasRole)
}

var typedClaims = map[string]bool{
	"sub": true, "iss": true, "aud": true, "exp": true,
	"iat": true, "scp": true, "roles": true,
}

// claimsFromMap builds Claims from a signature-verified claim map.
func claimsFromMap(m jwt.MapClaims) *Claims {
	c := &Claims{Extra: make(map[string]any)}

	c.Subject, _ = m.GetSubject()
	c.Issuer, _ = m.GetIssuer()
	if aud, err := m.GetAudience(); err == nil {
		c.Audience = []string(aud)
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := m.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}

	if scp, ok := m["scp"].(string); ok {
		c.Scopes = dedupe(strings.Fields(scp))
	}
	c.Roles = dedupe(stringList(m["roles"]))

	for k, v := range m {
		if !typedClaims[k] {
			c.Extra[k] = v
		}
	}
	return c
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.Fields(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	default:
		return nil
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
