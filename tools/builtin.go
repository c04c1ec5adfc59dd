package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/mcpgate/observe"
	"github.com/jonwraymond/mcpgate/store"
)

// Resource URIs served by the built-in catalogue.
const (
	StatusURI     = "prynai://status"
	CounterURI    = "prynai://counter"
	ServerInfoURI = "prynai://server-info"
	HelloTemplate = "hello://{name}"
)

// MaxLongTaskSteps bounds long_task.
const MaxLongTaskSteps = 100

// Publisher receives counter updates. *store.Broadcaster implements it.
type Publisher interface {
	Publish(name string, value int64) int
}

// ServerInfo is the body of prynai://server-info.
type ServerInfo struct {
	Deployment   string   `json:"deployment"`
	Build        string   `json:"build"`
	AuthRequired bool     `json:"auth_required"`
	Issuer       string   `json:"issuer"`
	Audiences    []string `json:"audiences"`
}

// BuiltinsConfig configures RegisterBuiltins.
type BuiltinsConfig struct {
	// Counter backs bump_counter, get_counter and prynai://counter. Required.
	Counter store.Counter

	// Updates is told about every counter change, keyed by CounterURI. Optional.
	Updates Publisher

	// Info is served as prynai://server-info.
	Info ServerInfo

	// StepDelay is the pause before each long_task step.
	// Default: 200 milliseconds
	StepDelay time.Duration

	// Logger receives server-side warnings. Optional.
	Logger observe.Logger
}

type addInput struct {
	A int64 `json:"a" jsonschema:"first addend"`
	B int64 `json:"b" jsonschema:"second addend"`
}

type echoInput struct {
	Message string `json:"message" jsonschema:"text to echo back"`
}

type bumpInput struct {
	Step int64 `json:"step,omitempty" jsonschema:"amount to add, default 1"`
}

type longTaskInput struct {
	Steps int `json:"steps,omitempty" jsonschema:"number of steps, default 3"`
}

type summarizeInput struct {
	Text string `json:"text" jsonschema:"text to summarize"`
}

type noInput struct{}

// RegisterBuiltins adds the standard mcpgate catalogue to r.
func RegisterBuiltins(r *Registry, cfg BuiltinsConfig) error {
	if cfg.Counter == nil {
		return errors.New("tools: builtins need a counter")
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Info.Audiences == nil {
		cfg.Info.Audiences = []string{}
	}
	b := builtins{cfg: cfg}

	var toolList []*Tool
	for _, build := range []func() (*Tool, error){
		func() (*Tool, error) { return NewTool("add", "Add two integers.", addInput{}, b.add) },
		func() (*Tool, error) {
			return NewTool("echo", "Echo text and emit an info log notification.", echoInput{}, b.echo)
		},
		func() (*Tool, error) {
			return NewTool("bump_counter", "Increment the shared counter and notify subscribers.", bumpInput{Step: 1}, b.bumpCounter)
		},
		func() (*Tool, error) {
			return NewTool("get_counter", "Read the shared counter.", noInput{}, b.getCounter)
		},
		func() (*Tool, error) {
			return NewTool("long_task", "Demonstrate progress notifications.", longTaskInput{Steps: 3}, b.longTask)
		},
		func() (*Tool, error) {
			return NewTool("summarize_via_client_llm", "Ask the client LLM to summarize; fall back if unsupported.", summarizeInput{}, b.summarize)
		},
	} {
		t, err := build()
		if err != nil {
			return err
		}
		toolList = append(toolList, t)
	}
	for _, t := range toolList {
		if err := r.AddTool(t); err != nil {
			return err
		}
	}

	resources := []struct {
		res  Resource
		read ResourceFunc
	}{
		{Resource{URI: StatusURI, Name: "status", Description: "Simple status resource."}, b.status},
		{Resource{URI: CounterURI, Name: "counter", Description: "Current value of the shared counter."}, b.counterValue},
		{Resource{URI: ServerInfoURI, Name: "server-info", Description: "Deployment and auth settings.", MIMEType: "application/json"}, b.serverInfo},
	}
	for _, res := range resources {
		if err := r.AddResource(res.res, res.read); err != nil {
			return err
		}
	}

	if err := r.AddTemplate(Template{URITemplate: HelloTemplate, Name: "hello", Description: "Dynamic greeting."}, b.hello); err != nil {
		return err
	}

	return r.AddPrompt(Prompt{
		Name:        "quick_summary",
		Description: "Reusable summary prompt.",
		Arguments: []PromptArgument{
			{Name: "title", Description: "document title", Default: "Untitled"},
			{Name: "tone", Description: "formal or informal", Default: "formal"},
		},
	}, quickSummary)
}

type builtins struct {
	cfg BuiltinsConfig
}

func (b builtins) add(_ context.Context, _ *Call, in addInput) (int64, error) {
	return in.A + in.B, nil
}

func (b builtins) echo(ctx context.Context, call *Call, in echoInput) (string, error) {
	b.notify(ctx, call, LevelInfo, "echo called: "+in.Message)
	return in.Message, nil
}

func (b builtins) bumpCounter(ctx context.Context, call *Call, in bumpInput) (int64, error) {
	v, err := b.cfg.Counter.Increment(ctx, store.DefaultCounter, in.Step)
	if err != nil {
		return 0, err
	}
	if b.cfg.Updates != nil {
		b.cfg.Updates.Publish(CounterURI, v)
	}
	b.notify(ctx, call, LevelInfo, fmt.Sprintf("counter updated -> %d", v))
	return v, nil
}

func (b builtins) getCounter(ctx context.Context, _ *Call, _ noInput) (string, error) {
	return b.counterValue(ctx)
}

func (b builtins) longTask(ctx context.Context, call *Call, in longTaskInput) (string, error) {
	if in.Steps > MaxLongTaskSteps {
		return "", fmt.Errorf("%w: long_task: steps must be at most %d", ErrInvalidArguments, MaxLongTaskSteps)
	}
	b.notify(ctx, call, LevelInfo, fmt.Sprintf("long_task starting: %d steps", in.Steps))

	timer := time.NewTimer(b.cfg.StepDelay)
	defer timer.Stop()
	for i := range in.Steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
		progress := float64(i+1) / float64(in.Steps)
		if err := call.Session.Progress(ctx, progress, 1, fmt.Sprintf("step %d/%d", i+1, in.Steps)); err != nil {
			b.cfg.Logger.Warn(ctx, "progress notification failed", observe.Field{Key: "error", Value: err.Error()})
		}
		timer.Reset(b.cfg.StepDelay)
	}

	b.notify(ctx, call, LevelWarning, "long_task done")
	return "done", nil
}

func (b builtins) summarize(ctx context.Context, call *Call, in summarizeInput) (string, error) {
	text, err := call.Session.Sample(ctx, SampleRequest{
		Prompt:      "Summarize: " + in.Text,
		MaxTokens:   64,
		Temperature: 0,
	})
	if err != nil {
		b.notify(ctx, call, LevelWarning, "sampling unavailable: "+err.Error())
		b.cfg.Logger.Warn(ctx, "sampling unavailable", observe.Field{Key: "error", Value: err.Error()})
		return "sampling unavailable", nil
	}
	return text, nil
}

func (b builtins) status(context.Context) (string, error) {
	return "ok", nil
}

func (b builtins) counterValue(ctx context.Context) (string, error) {
	v, err := b.cfg.Counter.Get(ctx, store.DefaultCounter)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}

func (b builtins) serverInfo(context.Context) (string, error) {
	data, err := json.Marshal(b.cfg.Info)
	if err != nil {
		return "", fmt.Errorf("tools: encode server info: %w", err)
	}
	return string(data), nil
}

func (b builtins) hello(_ context.Context, vars map[string]string) (string, error) {
	return "Hello, " + vars["name"], nil
}

// notify sends a log notification to the client. Failures are logged and
// never fail the call.
func (b builtins) notify(ctx context.Context, call *Call, level LogLevel, msg string) {
	if err := call.Session.Log(ctx, level, msg); err != nil {
		b.cfg.Logger.Debug(ctx, "log notification failed", observe.Field{Key: "error", Value: err.Error()})
	}
}

func quickSummary(_ context.Context, args map[string]string) ([]Message, error) {
	style := "Summarize informally."
	if args["tone"] == "formal" {
		style = "Write a concise, formal summary."
	}
	return []Message{{Role: "user", Text: style + " Document title: " + args["title"]}}, nil
}
