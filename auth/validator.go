package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ValidatorConfig configures the JWT validator.
type ValidatorConfig struct {
	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string

	// Audiences lists acceptable aud values; the token must carry at least
	// one of them. Empty disables the check.
	Audiences []string

	// Algorithm is the only accepted header alg.
	// Default: "RS256"
	Algorithm string

	// Leeway is the clock skew tolerated on exp and nbf.
	// Default: 0
	Leeway time.Duration

	// Now overrides the clock used for time-based claims.
	Now func() time.Time
}

// TokenValidator verifies a raw bearer token.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*Claims, error)
}

// JWTValidator verifies signed JWTs against keys from a KeyResolver.
type JWTValidator struct {
	config   ValidatorConfig
	resolver KeyResolver
	parser   *jwt.Parser
}

// NewJWTValidator creates a validator. A nil resolver yields config_error on
// every call rather than a panic.
func NewJWTValidator(config ValidatorConfig, resolver KeyResolver) *JWTValidator {
	if config.Algorithm == "" {
		config.Algorithm = jwt.SigningMethodRS256.Alg()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{config.Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(config.Now),
	)

	return &JWTValidator{
		config:   config,
		resolver: resolver,
		parser:   parser,
	}
}

// Validate checks raw and returns its claims. Every failure is an *Error.
//
// The header algorithm is checked before any key lookup, and claims are only
// read after the signature verifies.
func (v *JWTValidator) Validate(ctx context.Context, raw string) (*Claims, error) {
	if v.resolver == nil {
		return nil, newError(CodeConfigError, ErrNotConfigured)
	}
	if raw == "" {
		return nil, newError(CodeMissingToken, ErrEmptyToken)
	}

	unverified, _, err := v.parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, newError(CodeInvalidToken, fmt.Errorf("%w: %v", ErrTokenMalformed, err))
	}

	alg, _ := unverified.Header["alg"].(string)
	if alg != v.config.Algorithm {
		return nil, newError(CodeInvalidToken, fmt.Errorf("%w: %q", ErrAlgorithm, alg))
	}

	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, newError(CodeInvalidToken, fmt.Errorf("%w: missing kid", ErrTokenMalformed))
	}

	key, err := v.resolver.Resolve(ctx, kid)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, newError(CodeInvalidSignature, err)
		}
		return nil, newError(CodeJWKSError, err)
	}
	if key.Algorithm != "" && key.Algorithm != v.config.Algorithm {
		return nil, newError(CodeInvalidSignature, fmt.Errorf("%w: key %q is %s", ErrInvalidSignature, kid, key.Algorithm))
	}

	token, err := v.parser.ParseWithClaims(raw, jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		return key.Key, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, newError(CodeInvalidToken, ErrTokenMalformed)
	}
	claims := claimsFromMap(mc)

	if v.config.Issuer != "" && claims.Issuer != v.config.Issuer {
		return nil, newError(CodeInvalidToken, fmt.Errorf("%w: %q", ErrIssuerMismatch, claims.Issuer))
	}
	if len(v.config.Audiences) > 0 && !intersects(claims.Audience, v.config.Audiences) {
		return nil, newError(CodeInvalidToken, fmt.Errorf("%w: %v", ErrAudienceMismatch, claims.Audience))
	}

	return claims, nil
}

// Config returns the validator configuration.
func (v *JWTValidator) Config() ValidatorConfig {
	return v.config
}

func classifyParseError(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrInvalidKeyType):
		return newError(CodeInvalidSignature, fmt.Errorf("%w: %v", ErrInvalidSignature, err))
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(CodeInvalidToken, fmt.Errorf("%w: %v", ErrTokenExpired, err))
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return newError(CodeInvalidToken, fmt.Errorf("%w: %v", ErrTokenNotYetValid, err))
	default:
		return newError(CodeInvalidToken, fmt.Errorf("%w: %v", ErrTokenMalformed, err))
	}
}

func intersects(have, want []string) bool {
	for _, h := range have {
		if slices.Contains(want, h) {
			return true
		}
	}
	return false
}

var _ TokenValidator = (*JWTValidator)(nil)
