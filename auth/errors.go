package auth

import (
	"errors"
	"fmt"
)

// Sentinel reasons. They are attached to *Error as the Reason and are meant
// for logs, never for the response body.
var (
	// Request errors
	ErrMissingCredentials = errors.New("auth: missing or malformed authorization header")
	ErrEmptyToken         = errors.New("auth: empty bearer token")
	ErrNotConfigured      = errors.New("auth: validator not configured")

	// Token errors
	ErrTokenMalformed   = errors.New("auth: token malformed")
	ErrAlgorithm        = errors.New("auth: unexpected signing algorithm")
	ErrInvalidSignature = errors.New("auth: invalid signature")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrTokenNotYetValid = errors.New("auth: token not yet valid")
	ErrIssuerMismatch   = errors.New("auth: issuer mismatch")
	ErrAudienceMismatch = errors.New("auth: audience mismatch")

	// Key errors
	ErrKeyNotFound   = errors.New("auth: signing key not found")
	ErrKeyResolution = errors.New("auth: signing key resolution failed")
	ErrMalformedJWKS = errors.New("auth: malformed key set")

	// Authorization errors
	ErrInsufficientScope = errors.New("auth: insufficient scope")
	ErrInsufficientRole  = errors.New("auth: insufficient role")
)

// Code is the public error code sent in the 401 body and challenge header.
type Code string

const (
	CodeMissingOrMalformed Code = "missing_or_malformed"
	CodeMissingToken       Code = "missing_token"
	CodeInvalidSignature   Code = "invalid_signature"
	CodeInvalidToken       Code = "invalid_token"
	CodeInsufficientScope  Code = "insufficient_scope"
	CodeInsufficientRole   Code = "insufficient_role"
	CodeJWKSError          Code = "jwks_error"
	CodeConfigError        Code = "config_error"
)

var descriptions = map[Code]string{
	CodeMissingOrMalformed: "Missing or malformed Authorization header",
	CodeMissingToken:       "Bearer token is empty",
	CodeInvalidSignature:   "Token signature could not be verified",
	CodeInvalidToken:       "Token is not valid",
	CodeInsufficientScope:  "Token does not carry a required scope",
	CodeInsufficientRole:   "Token does not carry a required app role",
	CodeJWKSError:          "Signing keys are unavailable",
	CodeConfigError:        "Authentication is misconfigured",
}

// Description returns the generic client-facing text for the code.
func (c Code) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return "Unauthorized"
}

// Error is a gate-level failure. Code and Description are safe to return to
// the caller; Reason names the specific check that failed.
type Error struct {
	Code        Code
	Description string
	Reason      error
}

func newError(code Code, reason error) *Error {
	return &Error{Code: code, Description: code.Description(), Reason: reason}
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Reason)
	}
	return string(e.Code)
}

// Unwrap returns the reason for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Reason
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Challenge renders the WWW-Authenticate header value.
func (e *Error) Challenge() string {
	return fmt.Sprintf("Bearer error=%q, error_description=%q", string(e.Code), e.Description)
}

// AsError converts err into an *Error. Errors that are not already gate
// failures are reported as invalid_token.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return newError(CodeInvalidToken, err)
}

// KeyResolutionError reports a failure to produce a signing key for a key ID.
// It matches ErrKeyResolution and whatever caused it.
type KeyResolutionError struct {
	KeyID string
	Err   error
}

func (e *KeyResolutionError) Error() string {
	return fmt.Sprintf("auth: resolve signing key %q: %v", e.KeyID, e.Err)
}

func (e *KeyResolutionError) Unwrap() []error {
	return []error{ErrKeyResolution, e.Err}
}

// reasons maps sentinel reasons to the short label used in logs and metrics.
var reasons = []struct {
	err   error
	label string
}{
	{ErrMissingCredentials, "missing_header"},
	{ErrEmptyToken, "empty_token"},
	{ErrNotConfigured, "not_configured"},
	{ErrAlgorithm, "malformed"},
	{ErrTokenMalformed, "malformed"},
	{ErrInvalidSignature, "signature"},
	{ErrKeyNotFound, "signature"},
	{ErrTokenExpired, "expired"},
	{ErrTokenNotYetValid, "not_yet_valid"},
	{ErrIssuerMismatch, "issuer"},
	{ErrAudienceMismatch, "audience"},
	{ErrInsufficientScope, "scope"},
	{ErrInsufficientRole, "role"},
	{ErrKeyResolution, "key_resolution"},
}

// ReasonOf returns the log label for the sub-reason behind err, or "unknown".
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "unknown"
}
