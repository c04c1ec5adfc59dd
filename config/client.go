package config

import (
	"context"
	"strings"
)

// Client holds the settings of the smoke client.
type Client struct {
	// ServerURL is the MCP endpoint, for example https://host/mcp.
	ServerURL string `env:"MCPGATE_URL" validate:"required,url"`

	TenantID  string `env:"ENTRA_TENANT_ID" validate:"required_with=ClientID"`
	Authority string `env:"ENTRA_AUTHORITY" validate:"required,url"`

	// ClientID and ClientSecret identify the calling app registration. When
	// ClientID is empty the client connects without a token.
	ClientID     string `env:"ENTRA_CLIENT_ID"`
	ClientSecret string `env:"ENTRA_CLIENT_SECRET" validate:"required_with=ClientID"`

	// ServerAppIDURI is the server app's Application ID URI; the token is
	// requested for <ServerAppIDURI>/.default.
	ServerAppIDURI string `env:"SERVER_APP_ID_URI" validate:"required_with=ClientID"`
}

// TokenURL is the tenant's OAuth 2.0 v2 token endpoint.
func (c *Client) TokenURL() string {
	return strings.TrimRight(c.Authority, "/") + "/" + c.TenantID + "/oauth2/v2.0/token"
}

// Scope is the client-credentials scope for the server app.
func (c *Client) Scope() string {
	return strings.TrimRight(c.ServerAppIDURI, "/") + "/.default"
}

// Validate checks c.
func (c *Client) Validate() error {
	return validate(c)
}

// LoadClient builds a Client from the environment and validates it.
func LoadClient(ctx context.Context, opts ...Option) (*Client, error) {
	r, err := newReader(ctx, opts)
	if err != nil {
		return nil, err
	}

	c := &Client{
		ServerURL:      r.str("MCPGATE_URL", "http://127.0.0.1:8000/mcp"),
		TenantID:       r.str("ENTRA_TENANT_ID", ""),
		Authority:      r.str("ENTRA_AUTHORITY", DefaultAuthority),
		ClientID:       r.str("ENTRA_CLIENT_ID", ""),
		ClientSecret:   r.str("ENTRA_CLIENT_SECRET", ""),
		ServerAppIDURI: r.str("SERVER_APP_ID_URI", ""),
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
