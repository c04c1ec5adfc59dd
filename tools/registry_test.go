package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/mcpgate/auth"
)

type greetInput struct {
	Name     string `json:"name" jsonschema:"who to greet"`
	Greeting string `json:"greeting,omitempty"`
}

func newGreetTool(t *testing.T) *Tool {
	t.Helper()
	tool, err := NewTool("greet", "Greet someone.", greetInput{Greeting: "hi"},
		func(_ context.Context, _ *Call, in greetInput) (string, error) {
			return in.Greeting + " " + in.Name, nil
		})
	require.NoError(t, err)
	return tool
}

func TestNewTool_InfersObjectSchema(t *testing.T) {
	tool := newGreetTool(t)

	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.Contains(t, tool.InputSchema.Properties, "name")
	assert.Contains(t, tool.InputSchema.Properties, "greeting")
	assert.Equal(t, []string{"name"}, tool.InputSchema.Required)
	assert.Equal(t, "who to greet", tool.InputSchema.Properties["name"].Description)
}

func TestNewTool_RejectsNonObjectInput(t *testing.T) {
	_, err := NewTool("bad", "", 0, func(context.Context, *Call, int) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestRegistry_CallAppliesDefaults(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTool(newGreetTool(t)))

	out, err := r.Call(context.Background(), "greet", json.RawMessage(`{"name":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi ada", out)

	out, err = r.Call(context.Background(), "greet", json.RawMessage(`{"name":"ada","greeting":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello ada", out)
}

func TestRegistry_CallDefaultsDoNotLeakBetweenCalls(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTool(newGreetTool(t)))

	_, err := r.Call(context.Background(), "greet", json.RawMessage(`{"name":"a","greeting":"yo"}`))
	require.NoError(t, err)

	out, err := r.Call(context.Background(), "greet", json.RawMessage(`{"name":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi b", out)
}

func TestRegistry_CallNullArguments(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTool(newGreetTool(t)))

	out, err := r.Call(context.Background(), "greet", json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, "hi ", out)
}

func TestRegistry_CallEncodesNonStringResults(t *testing.T) {
	r := NewRegistry()
	tool, err := NewTool("pair", "", struct{}{}, func(context.Context, *Call, struct{}) (map[string]int, error) {
		return map[string]int{"a": 1}, nil
	})
	require.NoError(t, err)
	require.NoError(t, r.AddTool(tool))

	out, err := r.Call(context.Background(), "pair", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, out)
}

func TestRegistry_CallErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTool(newGreetTool(t)))

	boom := errors.New("boom")
	failing, err := NewTool("fail", "", struct{}{}, func(context.Context, *Call, struct{}) (string, error) {
		return "", boom
	})
	require.NoError(t, err)
	require.NoError(t, r.AddTool(failing))

	_, err = r.Call(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)

	_, err = r.Call(context.Background(), "greet", json.RawMessage(`{"name":5}`))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = r.Call(context.Background(), "fail", nil)
	assert.Same(t, boom, err)
}

func TestRegistry_Duplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTool(newGreetTool(t)))
	assert.ErrorIs(t, r.AddTool(newGreetTool(t)), ErrDuplicate)

	read := func(context.Context) (string, error) { return "", nil }
	require.NoError(t, r.AddResource(Resource{URI: "x://a"}, read))
	assert.ErrorIs(t, r.AddResource(Resource{URI: "x://a"}, read), ErrDuplicate)

	tmpl := func(context.Context, map[string]string) (string, error) { return "", nil }
	require.NoError(t, r.AddTemplate(Template{URITemplate: "x://{id}"}, tmpl))
	assert.ErrorIs(t, r.AddTemplate(Template{URITemplate: "x://{id}"}, tmpl), ErrDuplicate)

	render := func(context.Context, map[string]string) ([]Message, error) { return nil, nil }
	require.NoError(t, r.AddPrompt(Prompt{Name: "p"}, render))
	assert.ErrorIs(t, r.AddPrompt(Prompt{Name: "p"}, render), ErrDuplicate)
}

func TestRegistry_ReadPrefersFixedResources(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTemplate(Template{URITemplate: "doc://{id}"},
		func(_ context.Context, vars map[string]string) (string, error) { return "tmpl " + vars["id"], nil }))
	require.NoError(t, r.AddResource(Resource{URI: "doc://index"},
		func(context.Context) (string, error) { return "fixed", nil }))

	c, err := r.Read(context.Background(), "doc://index")
	require.NoError(t, err)
	assert.Equal(t, "fixed", c.Text)
	assert.Equal(t, "text/plain", c.MIMEType)

	c, err = r.Read(context.Background(), "doc://42")
	require.NoError(t, err)
	assert.Equal(t, "tmpl 42", c.Text)
	assert.Equal(t, "doc://42", c.URI)

	_, err = r.Read(context.Background(), "other://42")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestRegistry_AddTemplateRejectsBadTemplate(t *testing.T) {
	r := NewRegistry()
	err := r.AddTemplate(Template{URITemplate: "doc://{id"}, nil)
	assert.Error(t, err)
}

func TestRegistry_GetPrompt(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddPrompt(Prompt{
		Name: "p",
		Arguments: []PromptArgument{
			{Name: "who", Required: true},
			{Name: "mood", Default: "calm"},
		},
	}, func(_ context.Context, args map[string]string) ([]Message, error) {
		return []Message{{Role: "user", Text: args["who"] + " is " + args["mood"]}}, nil
	}))

	msgs, err := r.GetPrompt(context.Background(), "p", map[string]string{"who": "bo"})
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: "user", Text: "bo is calm"}}, msgs)

	_, err = r.GetPrompt(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = r.GetPrompt(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"b", "a", "c"} {
		tool, err := NewTool(name, "", struct{}{}, func(context.Context, *Call, struct{}) (string, error) { return "", nil })
		require.NoError(t, err)
		require.NoError(t, r.AddTool(tool))
	}

	var names []string
	for _, tool := range r.List().Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestRegistry_CallSeesSessionAndClaims(t *testing.T) {
	var got *Call
	r := NewRegistry()
	tool, err := NewTool("who", "", struct{}{}, func(_ context.Context, call *Call, _ struct{}) (string, error) {
		got = call
		return "", nil
	})
	require.NoError(t, err)
	require.NoError(t, r.AddTool(tool))

	_, err = r.Call(context.Background(), "who", nil)
	require.NoError(t, err)
	assert.Nil(t, got.Claims)
	assert.Equal(t, NopSession(), got.Session)

	sess := &recordingSession{}
	claims := &auth.Claims{Subject: "user-1"}
	ctx := auth.WithClaims(WithSession(context.Background(), sess), claims)

	_, err = r.Call(ctx, "who", nil)
	require.NoError(t, err)
	assert.Same(t, claims, got.Claims)
	assert.Same(t, sess, got.Session)
}
