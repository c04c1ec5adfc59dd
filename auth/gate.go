package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jonwraymond/mcpgate/observe"
)

// State is where a request ended up in the gate.
type State int

const (
	// StateUnchecked is the initial state; it is never returned by Evaluate.
	StateUnchecked State = iota
	// StatePassThrough means the request proceeds without a check.
	StatePassThrough
	// StateAllowed means the token was verified and authorized.
	StateAllowed
	// StateDenied means the request is rejected with a 401.
	StateDenied
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StatePassThrough:
		return "pass_through"
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// DefaultExemptPaths are served without any token inspection.
var DefaultExemptPaths = []string{"/healthz", "/livez"}

// DecisionRecorder receives one call per checked request.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, outcome, code, reason string)
}

// GateConfig configures the auth gate.
type GateConfig struct {
	// Enabled turns the gate on. When false every request passes through
	// and no claims are attached.
	Enabled bool

	// ExemptPaths are matched exactly, before any header inspection.
	// Default: DefaultExemptPaths
	ExemptPaths []string

	// ProtectedPrefixes restricts the check to matching paths. When empty,
	// every non-exempt path is protected.
	ProtectedPrefixes []string

	// Validator verifies bearer tokens. A nil validator with Enabled set
	// denies protected requests with config_error.
	Validator TokenValidator

	// Policy is applied to verified claims.
	Policy Policy

	// Logger receives one entry per decision. Optional.
	Logger observe.Logger

	// Recorder receives decision metrics. Optional.
	Recorder DecisionRecorder
}

// Gate is HTTP middleware that enforces bearer authentication.
type Gate struct {
	config GateConfig
	exempt map[string]struct{}
}

// NewGate creates a gate.
func NewGate(config GateConfig) *Gate {
	if config.ExemptPaths == nil {
		config.ExemptPaths = DefaultExemptPaths
	}
	exempt := make(map[string]struct{}, len(config.ExemptPaths))
	for _, p := range config.ExemptPaths {
		exempt[p] = struct{}{}
	}
	return &Gate{config: config, exempt: exempt}
}

// Evaluate runs the gate state machine for r without writing a response.
func (g *Gate) Evaluate(r *http.Request) (State, Decision) {
	if _, ok := g.exempt[r.URL.Path]; ok {
		return StatePassThrough, Decision{Allow: true}
	}
	if !g.config.Enabled || !g.protected(r.URL.Path) {
		return StatePassThrough, Decision{Allow: true}
	}
	if g.config.Validator == nil {
		return StateDenied, Deny(newError(CodeConfigError, ErrNotConfigured))
	}

	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return StateDenied, Deny(err)
	}

	claims, err := g.config.Validator.Validate(r.Context(), token)
	if err != nil {
		return StateDenied, Deny(err)
	}

	d := g.config.Policy.Decide(claims)
	if !d.Allow {
		return StateDenied, d
	}
	return StateAllowed, d
}

// Middleware wraps next with the gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, d := g.Evaluate(r)

		ctx := r.Context()
		if ctx.Err() != nil {
			// Client went away mid-check; nothing to serve.
			return
		}

		switch state {
		case StateAllowed:
			g.record(ctx, r, state, d)
			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, d.Claims)))
		case StateDenied:
			g.record(ctx, r, state, d)
			WriteUnauthorized(w, d.Err)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (g *Gate) protected(path string) bool {
	if len(g.config.ProtectedPrefixes) == 0 {
		return true
	}
	for _, prefix := range g.config.ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *Gate) record(ctx context.Context, r *http.Request, state State, d Decision) {
	code, reason := "", ""
	if d.Err != nil {
		code, reason = string(d.Err.Code), ReasonOf(d.Err)
	}
	if g.config.Recorder != nil {
		g.config.Recorder.RecordDecision(ctx, state.String(), code, reason)
	}
	if g.config.Logger == nil {
		return
	}
	if state == StateDenied {
		g.config.Logger.Warn(ctx, "auth denied",
			observe.Field{Key: "path", Value: r.URL.Path},
			observe.Field{Key: "code", Value: code},
			observe.Field{Key: "reason", Value: reason},
			observe.Field{Key: "error", Value: d.Err.Error()},
		)
		return
	}
	g.config.Logger.Debug(ctx, "auth allowed",
		observe.Field{Key: "path", Value: r.URL.Path},
		observe.Field{Key: "sub", Value: d.Claims.Subject},
	)
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	const prefix = "bearer "
	// net/http trims trailing whitespace, so "Bearer " arrives as "Bearer".
	if strings.EqualFold(strings.TrimSpace(header), strings.TrimSpace(prefix)) {
		return "", newError(CodeMissingToken, ErrEmptyToken)
	}
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", newError(CodeMissingOrMalformed, ErrMissingCredentials)
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", newError(CodeMissingToken, ErrEmptyToken)
	}
	return token, nil
}

// errorBody is the JSON body of a 401 response.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// WriteUnauthorized writes the 401 challenge for e.
func WriteUnauthorized(w http.ResponseWriter, e *Error) {
	if e == nil {
		e = newError(CodeInvalidToken, nil)
	}
	w.Header().Set("WWW-Authenticate", e.Challenge())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:            string(e.Code),
		ErrorDescription: e.Description,
	})
}
