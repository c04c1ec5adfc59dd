package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/yosida95/uritemplate/v3"

	"github.com/jonwraymond/mcpgate/observe"
)

// Tool is a registered tool. Build one with NewTool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema

	invoke func(ctx context.Context, call *Call, args json.RawMessage) (any, error)
}

// NewTool builds a Tool whose arguments decode onto a copy of defaults.
// The input schema is inferred from In, which must be a struct type.
// Fields tagged omitempty are optional in the schema.
func NewTool[In, Out any](name, description string, defaults In, fn func(ctx context.Context, call *Call, in In) (Out, error)) (*Tool, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("tools: schema for %q: %w", name, err)
	}
	if schema.Type != "object" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, name)
	}
	return &Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
		invoke: func(ctx context.Context, call *Call, args json.RawMessage) (any, error) {
			in := defaults
			if len(args) > 0 && string(args) != "null" {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
				}
			}
			return fn(ctx, call, in)
		},
	}, nil
}

// Resource is a fixed-URI resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string

	read func(ctx context.Context) (string, error)
}

// ResourceFunc produces the text of a resource.
type ResourceFunc func(ctx context.Context) (string, error)

// Template is a resource family addressed by an RFC 6570 URI template.
type Template struct {
	URITemplate string
	Name        string
	Description string
	MIMEType    string

	tmpl *uritemplate.Template
	read TemplateFunc
}

// TemplateFunc produces the text of a templated resource from the variables
// matched in its URI.
type TemplateFunc func(ctx context.Context, vars map[string]string) (string, error)

// PromptArgument describes one prompt argument. Default fills in an omitted
// optional argument.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
	Default     string
}

// Message is one prompt message.
type Message struct {
	Role string // "user" or "assistant"
	Text string
}

// Prompt is a registered prompt.
type Prompt struct {
	Name        string
	Description string
	Arguments   []PromptArgument

	render PromptFunc
}

// PromptFunc renders a prompt. args holds every declared argument, with
// defaults applied.
type PromptFunc func(ctx context.Context, args map[string]string) ([]Message, error)

// Content is the result of reading a resource.
type Content struct {
	URI      string
	MIMEType string
	Text     string
}

// Catalogue lists everything a Registry serves.
type Catalogue struct {
	Tools     []*Tool
	Resources []*Resource
	Templates []*Template
	Prompts   []*Prompt
}

// Config configures a Registry.
type Config struct {
	// Middleware instruments every invocation. Optional.
	Middleware *observe.Middleware
}

// Registry maps names and URIs to handlers.
//
// Contract:
//   - Concurrency: safe for concurrent use; registration may race with calls.
//   - Errors: lookups fail with ErrToolNotFound, ErrResourceNotFound or
//     ErrPromptNotFound; handler errors are returned unchanged.
type Registry struct {
	exec observe.ExecuteFunc

	mu        sync.RWMutex
	tools     map[string]*Tool
	resources map[string]*Resource
	templates []*Template
	prompts   map[string]*Prompt
}

// NewRegistry creates an empty Registry.
func NewRegistry(config ...Config) *Registry {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}
	mw := cfg.Middleware
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, nil)
	}
	r := &Registry{
		tools:     make(map[string]*Tool),
		resources: make(map[string]*Resource),
		prompts:   make(map[string]*Prompt),
	}
	r.exec = mw.Wrap(r.dispatch)
	return r
}

// AddTool registers t.
func (r *Registry) AddTool(t *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("%w: tool %q", ErrDuplicate, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// AddResource registers a fixed-URI resource.
func (r *Registry) AddResource(res Resource, read ResourceFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[res.URI]; exists {
		return fmt.Errorf("%w: resource %q", ErrDuplicate, res.URI)
	}
	if res.MIMEType == "" {
		res.MIMEType = "text/plain"
	}
	res.read = read
	r.resources[res.URI] = &res
	return nil
}

// AddTemplate registers a resource template.
func (r *Registry) AddTemplate(t Template, read TemplateFunc) error {
	tmpl, err := uritemplate.New(t.URITemplate)
	if err != nil {
		return fmt.Errorf("tools: parse template %q: %w", t.URITemplate, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.templates {
		if existing.URITemplate == t.URITemplate {
			return fmt.Errorf("%w: template %q", ErrDuplicate, t.URITemplate)
		}
	}
	if t.MIMEType == "" {
		t.MIMEType = "text/plain"
	}
	t.tmpl = tmpl
	t.read = read
	r.templates = append(r.templates, &t)
	return nil
}

// AddPrompt registers a prompt.
func (r *Registry) AddPrompt(p Prompt, render PromptFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prompts[p.Name]; exists {
		return fmt.Errorf("%w: prompt %q", ErrDuplicate, p.Name)
	}
	p.render = render
	r.prompts[p.Name] = &p
	return nil
}

// List returns the catalogue. Tools, resources and prompts are sorted by
// name or URI; templates keep registration order, which is match order.
func (r *Registry) List() Catalogue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var c Catalogue
	for _, t := range r.tools {
		c.Tools = append(c.Tools, t)
	}
	for _, res := range r.resources {
		c.Resources = append(c.Resources, res)
	}
	for _, p := range r.prompts {
		c.Prompts = append(c.Prompts, p)
	}
	c.Templates = append(c.Templates, r.templates...)

	sort.Slice(c.Tools, func(i, j int) bool { return c.Tools[i].Name < c.Tools[j].Name })
	sort.Slice(c.Resources, func(i, j int) bool { return c.Resources[i].URI < c.Resources[j].URI })
	sort.Slice(c.Prompts, func(i, j int) bool { return c.Prompts[i].Name < c.Prompts[j].Name })
	return c
}

// Call invokes the named tool with JSON arguments and returns its result as
// text: strings pass through, anything else is JSON-encoded.
//
// The handler sees the Session attached with WithSession and the claims
// attached with auth.WithClaims.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	out, err := r.exec(ctx, observe.OpMeta{Kind: observe.KindTool, Name: name}, args)
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// Read returns the resource at uri. Fixed resources take precedence over
// templates; templates are tried in registration order.
func (r *Registry) Read(ctx context.Context, uri string) (*Content, error) {
	out, err := r.exec(ctx, observe.OpMeta{Kind: observe.KindResource, Name: r.resourceName(uri), URI: uri}, nil)
	if err != nil {
		return nil, err
	}
	return out.(*Content), nil
}

// GetPrompt renders the named prompt. Missing optional arguments take their
// defaults; a missing required argument fails with ErrInvalidArguments.
func (r *Registry) GetPrompt(ctx context.Context, name string, args map[string]string) ([]Message, error) {
	out, err := r.exec(ctx, observe.OpMeta{Kind: observe.KindPrompt, Name: name}, args)
	if err != nil {
		return nil, err
	}
	return out.([]Message), nil
}

func (r *Registry) dispatch(ctx context.Context, op observe.OpMeta, input any) (any, error) {
	switch op.Kind {
	case observe.KindResource:
		return r.read(ctx, op.URI)
	case observe.KindPrompt:
		args, _ := input.(map[string]string)
		return r.render(ctx, op.Name, args)
	default:
		args, _ := input.(json.RawMessage)
		return r.call(ctx, op.Name, args)
	}
}

func (r *Registry) call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	out, err := t.invoke(ctx, callFromContext(ctx), args)
	if err != nil {
		return "", err
	}
	return formatResult(out)
}

func (r *Registry) read(ctx context.Context, uri string) (*Content, error) {
	r.mu.RLock()
	res, ok := r.resources[uri]
	templates := r.templates
	r.mu.RUnlock()

	if ok {
		text, err := res.read(ctx)
		if err != nil {
			return nil, err
		}
		return &Content{URI: uri, MIMEType: res.MIMEType, Text: text}, nil
	}

	for _, t := range templates {
		values := t.tmpl.Match(uri)
		if values == nil {
			continue
		}
		vars := make(map[string]string, len(values))
		for _, name := range t.tmpl.Varnames() {
			vars[name] = values.Get(name).String()
		}
		text, err := t.read(ctx, vars)
		if err != nil {
			return nil, err
		}
		return &Content{URI: uri, MIMEType: t.MIMEType, Text: text}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrResourceNotFound, uri)
}

func (r *Registry) render(ctx context.Context, name string, args map[string]string) ([]Message, error) {
	r.mu.RLock()
	p, ok := r.prompts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPromptNotFound, name)
	}

	resolved := make(map[string]string, len(p.Arguments))
	for _, arg := range p.Arguments {
		v, present := args[arg.Name]
		switch {
		case present:
			resolved[arg.Name] = v
		case arg.Required:
			return nil, fmt.Errorf("%w: prompt %q requires %q", ErrInvalidArguments, name, arg.Name)
		default:
			resolved[arg.Name] = arg.Default
		}
	}
	return p.render(ctx, resolved)
}

// resourceName is the metric and span name for uri: the resource's or
// template's registered name, or the URI itself when nothing matches.
func (r *Registry) resourceName(uri string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if res, ok := r.resources[uri]; ok && res.Name != "" {
		return res.Name
	}
	for _, t := range r.templates {
		if t.tmpl.Match(uri) != nil && t.Name != "" {
			return t.Name
		}
	}
	return uri
}

func formatResult(out any) (string, error) {
	switch v := out.(type) {
	case string:
		return v, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("tools: encode result: %w", err)
	}
	return string(b), nil
}
