// Package auth verifies bearer tokens issued by an external identity provider
// and decides whether an HTTP request may reach the protected MCP surface.
//
// The package is split along the request path:
//
//   - JWKSResolver fetches and caches the provider's signing keys by key ID.
//   - JWTValidator checks algorithm, signature, expiry, issuer and audience and
//     returns typed Claims.
//   - Policy enforces required scopes and app roles.
//   - Gate is net/http middleware that composes the above, exempts health
//     endpoints and writes the 401 challenge on denial.
//
// Failures are reported as *Error values carrying a public code (for example
// "invalid_token") and a private Reason for server-side logs. Only the code and
// a generic description ever reach the client.
package auth
