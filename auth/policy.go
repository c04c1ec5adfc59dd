package auth

import (
	"fmt"
)

// Policy holds coarse-grained authorization requirements.
// Each list uses at-least-one-of semantics; an empty list skips its check.
type Policy struct {
	RequiredScopes []string
	RequiredRoles  []string
}

// Authorize returns nil if claims satisfy the policy, otherwise an *Error
// with code insufficient_scope or insufficient_role. Scopes are checked
// before roles.
func (p Policy) Authorize(claims *Claims) error {
	if claims == nil {
		return newError(CodeInvalidToken, ErrTokenMalformed)
	}
	if len(p.RequiredScopes) > 0 && !claims.HasAnyScope(p.RequiredScopes...) {
		return newError(CodeInsufficientScope,
			fmt.Errorf("%w: have %v, need one of %v", ErrInsufficientScope, claims.Scopes, p.RequiredScopes))
	}
	if len(p.RequiredRoles) > 0 && !claims.HasAnyRole(p.RequiredRoles...) {
		return newError(CodeInsufficientRole,
			fmt.Errorf("%w: have %v, need one of %v", ErrInsufficientRole, claims.Roles, p.RequiredRoles))
	}
	return nil
}

// Decide evaluates claims against the policy.
func (p Policy) Decide(claims *Claims) Decision {
	if err := p.Authorize(claims); err != nil {
		return Deny(err)
	}
	return Allow(claims)
}

// Decision is the per-request outcome of the gate.
type Decision struct {
	Allow  bool
	Claims *Claims
	Err    *Error
}

// Allow returns an allowing decision.
func Allow(claims *Claims) Decision {
	return Decision{Allow: true, Claims: claims}
}

// Deny returns a denying decision for err.
func Deny(err error) Decision {
	return Decision{Err: AsError(err)}
}
