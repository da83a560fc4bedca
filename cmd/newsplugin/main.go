// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the newsplugin CLI, a reference host that loads
// the news plugin and drives it from the command line or over MCP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jllopis/kairos-news/pkg/config"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

var version = "dev"

const serviceName = "newsplugin"

type globalFlags struct {
	ConfigPath string
	Profile    string
	Sets       []string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(NewInvalidArgumentError("flags", err.Error()), false)
	}
	if global.Help || len(args) == 0 {
		printUsage(os.Stdout)
		return
	}
	if err := run(ctx, global, args, os.Stdout); err != nil {
		fatal(err, global.JSON)
	}
}

func run(ctx context.Context, global globalFlags, args []string, out io.Writer) error {
	cmd := args[0]
	switch cmd {
	case "help":
		printUsage(out)
		return nil
	case "version":
		fmt.Fprintf(out, "%s %s\n", serviceName, version)
		return nil
	case "describe":
		return runDescribe(global, args[1:], out)
	case "ask", "context", "facts", "mcp":
	default:
		return NewInvalidArgumentError(cmd, fmt.Sprintf("unknown command %q", cmd))
	}

	cfg, err := config.LoadWithOverrides(global.ConfigPath, global.Profile, global.Sets)
	if err != nil {
		return NewConfigError(err, global.ConfigPath)
	}

	// Logs go to stderr; stdout carries command output and the MCP stream.
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	exporter := cfg.Telemetry.Exporter
	if cmd == "mcp" && exporter == "stdout" {
		logger.Warn("telemetry.stdout_disabled", slog.String("reason", "stdout is the MCP transport"))
		exporter = "none"
	}
	shutdown, err := telemetry.InitWithConfig(serviceName, version, telemetry.Config{
		Exporter:     exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case "ask":
		return runAsk(ctx, app, global, args[1:], out)
	case "context":
		return runContext(ctx, app, global, args[1:], out)
	case "facts":
		return runFacts(ctx, app, global, args[1:], out)
	default:
		return runMCP(ctx, app, global, logger)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		ConfigPath: os.Getenv("NEWSPLUGIN_CONFIG"),
		Profile:    os.Getenv("NEWSPLUGIN_PROFILE"),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config" || arg == "--profile" || arg == "--set":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.assign(strings.TrimPrefix(arg, "--"), args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="),
			strings.HasPrefix(arg, "--profile="),
			strings.HasPrefix(arg, "--set="):
			name, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
			flags.assign(name, value)
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func (f *globalFlags) assign(name, value string) {
	switch name {
	case "config":
		f.ConfigPath = value
	case "profile":
		f.Profile = value
	case "set":
		f.Sets = append(f.Sets, value)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `newsplugin - news plugin reference host

Usage:
  newsplugin [global flags] <command> [flags]

Commands:
  describe   Print the plugin descriptor (--format yaml|json)
  ask        Run one conversation turn: ask [--session id] [--user id] <message>
  context    Print the provider context for a session
  facts      List stored facts for a session
  mcp        Serve the plugin actions as MCP tools over stdio
  version    Print the version

Global flags:
  --config <path>     Configuration file (env NEWSPLUGIN_CONFIG)
  --profile <name>    Profile overlay, e.g. dev loads config.dev.yaml
  --set key=value     Override a configuration key (repeatable)
  --json              JSON output
  -h, --help          Show this help
`)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func fatal(err error, asJSON bool) {
	if cliErr, ok := err.(*CLIError); ok {
		cliErr.PrintError(asJSON)
	} else {
		PrintSimpleError(err, asJSON)
	}
	os.Exit(1)
}
