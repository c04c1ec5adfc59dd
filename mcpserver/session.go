package mcpserver

import (
	"context"
	"fmt"
	"net/http"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/mcpgate/auth"
	"github.com/jonwraymond/mcpgate/tools"
)

// loggerName tags log notifications sent to clients.
const loggerName = "mcpgate"

// claimsKey is the TokenInfo.Extra key that carries *auth.Claims.
const claimsKey = "mcpgate.claims"

// session adapts an MCP server session to tools.Session.
type session struct {
	ss    *mcp.ServerSession
	token any
}

func newSession(ss *mcp.ServerSession, progressToken any) tools.Session {
	if ss == nil {
		return tools.NopSession()
	}
	return &session{ss: ss, token: progressToken}
}

func (s *session) Progress(ctx context.Context, progress, total float64, message string) error {
	if s.token == nil {
		return nil
	}
	return s.ss.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: s.token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

func (s *session) Log(ctx context.Context, level tools.LogLevel, message string) error {
	return s.ss.Log(ctx, &mcp.LoggingMessageParams{
		Level:  mcp.LoggingLevel(level),
		Logger: loggerName,
		Data:   message,
	})
}

func (s *session) Sample(ctx context.Context, req tools.SampleRequest) (string, error) {
	res, err := s.ss.CreateMessage(ctx, &mcp.CreateMessageParams{
		Messages: []*mcp.SamplingMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: req.Prompt},
		}},
		SystemPrompt: req.SystemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})
	if err != nil {
		return "", err
	}
	text, ok := res.Content.(*mcp.TextContent)
	if !ok {
		return "", fmt.Errorf("mcpserver: sampling returned %T content", res.Content)
	}
	return text.Text, nil
}

// requestContext attaches the session and any verified claims to ctx.
func requestContext(ctx context.Context, s tools.Session, extra *mcp.RequestExtra) context.Context {
	ctx = tools.WithSession(ctx, s)
	if claims := claimsFromExtra(extra); claims != nil {
		ctx = auth.WithClaims(ctx, claims)
	}
	return ctx
}

func claimsFromExtra(extra *mcp.RequestExtra) *auth.Claims {
	if extra == nil || extra.TokenInfo == nil {
		return nil
	}
	claims, _ := extra.TokenInfo.Extra[claimsKey].(*auth.Claims)
	return claims
}

// bridgeClaims hands claims attached by auth.Gate to the MCP layer. The
// streamable transport does not pass the HTTP request context to handlers,
// only the go-sdk TokenInfo, so the claims travel in TokenInfo.Extra.
// Requests without claims (auth disabled or exempt) pass through untouched.
func bridgeClaims(next http.Handler) http.Handler {
	withToken := sdkauth.RequireBearerToken(claimsVerifier, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.ClaimsFromContext(r.Context()) == nil {
			next.ServeHTTP(w, r)
			return
		}
		withToken.ServeHTTP(w, r)
	})
}

// claimsVerifier trusts the gate: the token was already verified and its
// claims are on the request context.
func claimsVerifier(_ context.Context, _ string, r *http.Request) (*sdkauth.TokenInfo, error) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return nil, sdkauth.ErrInvalidToken
	}
	return &sdkauth.TokenInfo{
		Scopes:     claims.Scopes,
		Expiration: claims.ExpiresAt,
		Extra:      map[string]any{claimsKey: claims},
	}, nil
}
