package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/mcpgate/config"
	"github.com/jonwraymond/mcpgate/mcpserver"
	"github.com/jonwraymond/mcpgate/store"
	"github.com/jonwraymond/mcpgate/tools"
)

func TestSmoke(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, tools.RegisterBuiltins(reg, tools.BuiltinsConfig{Counter: store.NewMemoryCounter()}))
	srv := httptest.NewServer(mcpserver.New(reg, mcpserver.Config{}).Handler(nil))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	require.NoError(t, smoke(t.Context(), &config.Client{ServerURL: srv.URL}, &out))

	assert.Contains(t, out.String(), "add(7, 8) = 15\n")
	assert.Contains(t, out.String(), "prynai://status = ok\n")
	assert.Contains(t, out.String(), "tools: ")
	assert.Contains(t, out.String(), "summarize_via_client_llm")
}

func TestSmoke_ServerDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	err := smoke(t.Context(), &config.Client{ServerURL: url}, &out)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestRun_InvalidClientConfig(t *testing.T) {
	t.Setenv("ENTRA_CLIENT_ID", "client-1")
	t.Setenv("ENTRA_CLIENT_SECRET", "")
	t.Setenv("ENTRA_TENANT_ID", "")
	t.Setenv("SERVER_APP_ID_URI", "")

	err := run([]string{"--env-file", ""}, &bytes.Buffer{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
