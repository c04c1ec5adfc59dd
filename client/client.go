package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jonwraymond/mcpgate/config"
)

// Config configures Connect.
type Config struct {
	// HTTPClient carries every request, token requests included.
	// Default: http.DefaultClient
	HTTPClient *http.Client

	// Name and Version identify the client during initialization.
	// Default: "mcpgate-client", "dev"
	Name    string
	Version string

	// Options is passed to mcp.NewClient. Optional.
	Options *mcp.ClientOptions
}

// TokenSource returns a cached client-credentials token source for cfg, or
// nil when cfg has no ClientID. Tokens are requested for cfg.Scope() from
// cfg.TokenURL().
func TokenSource(ctx context.Context, cfg *config.Client) oauth2.TokenSource {
	if cfg.ClientID == "" {
		return nil
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL(),
		Scopes:       []string{cfg.Scope()},
	}
	return cc.TokenSource(ctx)
}

// Connect initializes an MCP session with cfg.ServerURL. With credentials
// configured, the first token is fetched before connecting so a bad secret
// fails here rather than as an opaque 401.
func Connect(ctx context.Context, cfg *config.Client, opts ...Config) (*mcp.ClientSession, error) {
	var c Config
	if len(opts) > 0 {
		c = opts[0]
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Name == "" {
		c.Name = "mcpgate-client"
	}
	if c.Version == "" {
		c.Version = "dev"
	}

	httpClient := c.HTTPClient
	// Token refreshes outlive ctx, which may only bound the connect.
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, c.HTTPClient)
	if ts := TokenSource(tokenCtx, cfg); ts != nil {
		if _, err := ts.Token(); err != nil {
			return nil, fmt.Errorf("client: acquire token: %w", err)
		}
		httpClient = oauth2.NewClient(tokenCtx, ts)
	}

	mc := mcp.NewClient(&mcp.Implementation{Name: c.Name, Version: c.Version}, c.Options)
	cs, err := mc.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   cfg.ServerURL,
		HTTPClient: httpClient,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("client: connect %s: %w", cfg.ServerURL, err)
	}
	return cs, nil
}

// ToolNames lists the names of every tool the server offers.
func ToolNames(ctx context.Context, cs *mcp.ClientSession) ([]string, error) {
	var names []string
	for tool, err := range cs.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("client: list tools: %w", err)
		}
		names = append(names, tool.Name)
	}
	return names, nil
}

// CallText calls tool name and returns its text content. An error result
// is returned as ErrToolFailed carrying the tool's message.
func CallText(ctx context.Context, cs *mcp.ClientSession, name string, args any) (string, error) {
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("client: call %s: %w", name, err)
	}
	text, textErr := joinText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("%w: %s: %s", ErrToolFailed, name, text)
	}
	if textErr != nil {
		return "", fmt.Errorf("client: call %s: %w", name, textErr)
	}
	return text, nil
}

// ReadText reads the resource at uri and returns its text.
func ReadText(ctx context.Context, cs *mcp.ClientSession, uri string) (string, error) {
	res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("client: read %s: %w", uri, err)
	}
	var b strings.Builder
	for _, c := range res.Contents {
		b.WriteString(c.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("client: read %s: %w", uri, ErrNoText)
	}
	return b.String(), nil
}

func joinText(content []mcp.Content) (string, error) {
	var (
		b     strings.Builder
		found bool
	)
	for _, c := range content {
		if t, ok := c.(*mcp.TextContent); ok {
			b.WriteString(t.Text)
			found = true
		}
	}
	if !found {
		return "", ErrNoText
	}
	return b.String(), nil
}
