package mcpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/mcpgate/observe"
	"github.com/jonwraymond/mcpgate/tools"
)

// Config configures a Server.
type Config struct {
	// Name is reported to clients during initialization.
	// Default: "mcpgate"
	Name string

	// Version is reported to clients during initialization.
	// Default: "dev"
	Version string

	// Instructions is sent to clients as the server's usage hint. Optional.
	Instructions string

	// KeepAlive pings idle sessions at this interval. Zero disables it.
	KeepAlive time.Duration

	// Logger receives subscription and notification events. Optional.
	Logger observe.Logger
}

// Server exposes a tools.Registry as an MCP server.
type Server struct {
	mcp      *mcp.Server
	registry *tools.Registry
	logger   observe.Logger
}

// New binds everything registered in reg onto a new MCP server. Entries
// added to reg afterwards are not served.
func New(reg *tools.Registry, cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "mcpgate"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	s := &Server{registry: reg, logger: cfg.Logger}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, &mcp.ServerOptions{
		Instructions:       cfg.Instructions,
		KeepAlive:          cfg.KeepAlive,
		SubscribeHandler:   s.subscribe,
		UnsubscribeHandler: s.unsubscribe,
	})
	s.bind(reg.List())
	return s
}

// MCP returns the underlying go-sdk server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Handler returns the streamable HTTP handler for the server. Mount it
// behind auth.Gate; verified claims reach tool handlers through
// auth.ClaimsFromContext.
func (s *Server) Handler(opts *mcp.StreamableHTTPOptions) http.Handler {
	h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, opts)
	return bridgeClaims(h)
}

func (s *Server) bind(c tools.Catalogue) {
	for _, t := range c.Tools {
		s.mcp.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}, s.callTool(t.Name))
	}
	for _, res := range c.Resources {
		s.mcp.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MIMEType,
		}, s.readResource)
	}
	for _, t := range c.Templates {
		s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: t.URITemplate,
			Name:        t.Name,
			Description: t.Description,
			MIMEType:    t.MIMEType,
		}, s.readResource)
	}
	for _, p := range c.Prompts {
		args := make([]*mcp.PromptArgument, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			args = append(args, &mcp.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required})
		}
		s.mcp.AddPrompt(&mcp.Prompt{
			Name:        p.Name,
			Description: p.Description,
			Arguments:   args,
		}, s.getPrompt(p.Description))
	}
}

// callTool reports handler failures as an error result. Unknown tools and
// undecodable arguments are protocol errors.
func (s *Server) callTool(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = requestContext(ctx, newSession(req.Session, req.Params.GetProgressToken()), req.Extra)

		out, err := s.registry.Call(ctx, name, req.Params.Arguments)
		switch {
		case errors.Is(err, tools.ErrToolNotFound), errors.Is(err, tools.ErrInvalidArguments):
			return nil, err
		case err != nil:
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: out}}}, nil
	}
}

func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	ctx = requestContext(ctx, newSession(req.Session, nil), req.Extra)

	c, err := s.registry.Read(ctx, req.Params.URI)
	if errors.Is(err, tools.ErrResourceNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: c.URI, MIMEType: c.MIMEType, Text: c.Text}},
	}, nil
}

func (s *Server) getPrompt(description string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		ctx = requestContext(ctx, newSession(req.Session, nil), req.Extra)

		msgs, err := s.registry.GetPrompt(ctx, req.Params.Name, req.Params.Arguments)
		if err != nil {
			return nil, err
		}
		res := &mcp.GetPromptResult{Description: description}
		for _, m := range msgs {
			res.Messages = append(res.Messages, &mcp.PromptMessage{
				Role:    mcp.Role(m.Role),
				Content: &mcp.TextContent{Text: m.Text},
			})
		}
		return res, nil
	}
}

func (s *Server) subscribe(ctx context.Context, req *mcp.SubscribeRequest) error {
	s.logger.Debug(ctx, "resource subscribed",
		observe.Field{Key: "uri", Value: req.Params.URI},
		observe.Field{Key: "session", Value: req.Session.ID()},
	)
	return nil
}

func (s *Server) unsubscribe(ctx context.Context, req *mcp.UnsubscribeRequest) error {
	s.logger.Debug(ctx, "resource unsubscribed",
		observe.Field{Key: "uri", Value: req.Params.URI},
		observe.Field{Key: "session", Value: req.Session.ID()},
	)
	return nil
}
