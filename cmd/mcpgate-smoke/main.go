// mcpgate-smoke checks a running mcpgate end to end: it obtains a
// client-credentials token (when ENTRA_CLIENT_ID is set), lists the tools,
// calls add(7, 8) and reads prynai://status.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jonwraymond/mcpgate/client"
	"github.com/jonwraymond/mcpgate/config"
	"github.com/jonwraymond/mcpgate/tools"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		envFile string
		url     string
		timeout time.Duration
	)
	flagSet := pflag.NewFlagSet("mcpgate-smoke", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "env file to read before the process environment")
	flagSet.StringVar(&url, "url", "", "MCP endpoint (overrides MCPGATE_URL)")
	flagSet.DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var opts []config.Option
	if flagSet.Changed("env-file") {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, err := config.LoadClient(ctx, opts...)
	if err != nil {
		return err
	}
	if url != "" {
		cfg.ServerURL = url
	}
	return smoke(ctx, cfg, out)
}

func smoke(ctx context.Context, cfg *config.Client, out io.Writer) error {
	cs, err := client.Connect(ctx, cfg, client.Config{Name: "mcpgate-smoke"})
	if err != nil {
		return err
	}
	defer func() { _ = cs.Close() }()

	names, err := client.ToolNames(ctx, cs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tools: %s\n", strings.Join(names, ", "))

	sum, err := client.CallText(ctx, cs, "add", map[string]any{"a": 7, "b": 8})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "add(7, 8) = %s\n", sum)

	status, err := client.ReadText(ctx, cs, tools.StatusURI)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %s\n", tools.StatusURI, status)
	return nil
}
