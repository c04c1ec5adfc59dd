package tools

import (
	"context"

	"github.com/jonwraymond/mcpgate/auth"
)

// LogLevel is the severity of a log notification sent to the client.
type LogLevel string

const (
	LevelDebug   LogLevel = "debug"
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// SampleRequest asks the client's model for a completion.
type SampleRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int64
	Temperature  float64
}

// Session is the calling client, as seen from a handler.
type Session interface {
	// Progress reports progress on the current request. It is a no-op when
	// the client did not ask for progress.
	Progress(ctx context.Context, progress, total float64, message string) error

	// Log sends a log notification to the client.
	Log(ctx context.Context, level LogLevel, message string) error

	// Sample asks the client to run its model and returns the text reply.
	Sample(ctx context.Context, req SampleRequest) (string, error)
}

// Call is the per-invocation context handed to tool handlers.
type Call struct {
	Session Session

	// Claims are the verified token claims, or nil when auth is disabled.
	Claims *auth.Claims
}

type sessionKey struct{}

// WithSession attaches s to ctx. Registry invocations made with the returned
// context report through s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the Session attached to ctx, or a no-op Session.
func SessionFromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey{}).(Session); ok && s != nil {
		return s
	}
	return NopSession()
}

func callFromContext(ctx context.Context) *Call {
	return &Call{
		Session: SessionFromContext(ctx),
		Claims:  auth.ClaimsFromContext(ctx),
	}
}

type nopSession struct{}

// NopSession returns a Session that drops progress and log notifications and
// cannot sample.
func NopSession() Session { return nopSession{} }

func (nopSession) Progress(context.Context, float64, float64, string) error { return nil }
func (nopSession) Log(context.Context, LogLevel, string) error              { return nil }
func (nopSession) Sample(context.Context, SampleRequest) (string, error) {
	return "", ErrSamplingUnavailable
}
