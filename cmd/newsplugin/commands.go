// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/kairos-news/pkg/config"
	kairosmcp "github.com/jllopis/kairos-news/pkg/mcp"
	"github.com/jllopis/kairos-news/pkg/newsplugin"
	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

const (
	defaultSession = "cli"
	defaultUser    = "cli-user"
)

type unitView struct {
	Name        string             `json:"name" yaml:"name"`
	Similes     []string           `json:"similes,omitempty" yaml:"similes,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	AlwaysRun   bool               `json:"always_run,omitempty" yaml:"always_run,omitempty"`
	Examples    [][]plugin.Example `json:"examples,omitempty" yaml:"examples,omitempty"`
}

type descriptorView struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Actions     []unitView `json:"actions" yaml:"actions"`
	Evaluators  []unitView `json:"evaluators" yaml:"evaluators"`
	Providers   []unitView `json:"providers" yaml:"providers"`
}

func describe(d *plugin.Descriptor) descriptorView {
	view := descriptorView{Name: d.Name, Description: d.Description}
	for _, a := range d.Actions {
		view.Actions = append(view.Actions, unitView{Name: a.Name, Similes: a.Similes, Description: a.Description, Examples: a.Examples})
	}
	for _, e := range d.Evaluators {
		view.Evaluators = append(view.Evaluators, unitView{Name: e.Name, Similes: e.Similes, Description: e.Description, AlwaysRun: e.AlwaysRun, Examples: e.Examples})
	}
	for _, p := range d.Providers {
		view.Providers = append(view.Providers, unitView{Name: p.Name, Description: p.Description})
	}
	return view
}

// runDescribe prints the descriptor. It needs no configuration because
// building the descriptor performs no I/O.
func runDescribe(global globalFlags, args []string, out io.Writer) error {
	cmd := flag.NewFlagSet("describe", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	format := cmd.String("format", "yaml", "Output format: yaml or json")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("describe", err.Error())
	}
	if global.JSON {
		*format = "json"
	}

	view := describe(newsplugin.New())
	switch *format {
	case "json":
		return printJSON(out, view)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		return NewInvalidArgumentError("format", fmt.Sprintf("unsupported format %q", *format))
	}
}

type askResult struct {
	Session  string        `json:"session"`
	Action   string        `json:"action,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
	Reply    string        `json:"reply"`
	Error    bool          `json:"error,omitempty"`
	Sources  []string      `json:"sources,omitempty"`
	Context  string        `json:"context,omitempty"`
	Facts    []plugin.Fact `json:"facts,omitempty"`
}

func runAsk(ctx context.Context, a *app, global globalFlags, args []string, out io.Writer) error {
	cmd := flag.NewFlagSet("ask", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	session := cmd.String("session", defaultSession, "Conversation id")
	user := cmd.String("user", defaultUser, "Author id of the message")
	showContext := cmd.Bool("show-context", false, "Also print the provider context")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("ask", err.Error())
	}
	message := strings.TrimSpace(strings.Join(cmd.Args(), " "))
	if message == "" {
		return NewInvalidArgumentError("message", "a message is required")
	}

	res, err := a.runtime.Turn(ctx, *session, *user, message)
	if err != nil {
		return err
	}

	result := askResult{
		Session:  *session,
		Action:   res.Action.Action,
		Fallback: res.Action.Fallback,
		Context:  res.Context,
		Facts:    res.Facts,
	}
	if res.Reply != nil {
		result.Reply = res.Reply.Text
		result.Error = res.Reply.Error
		result.Sources = res.Reply.Sources
	}
	if global.JSON {
		return printJSON(out, result)
	}

	if *showContext && result.Context != "" {
		fmt.Fprintf(out, "--- context ---\n%s\n---------------\n", result.Context)
	}
	if result.Reply == "" {
		fmt.Fprintln(out, "(no reply)")
	} else {
		fmt.Fprintln(out, result.Reply)
	}
	if len(result.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, s := range result.Sources {
			fmt.Fprintf(out, "  %s\n", s)
		}
	}
	for _, f := range result.Facts {
		fmt.Fprintf(out, "[fact] %s\n", f.Claim)
	}
	return nil
}

func runContext(ctx context.Context, a *app, global globalFlags, args []string, out io.Writer) error {
	cmd := flag.NewFlagSet("context", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	session := cmd.String("session", defaultSession, "Conversation id")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("context", err.Error())
	}

	state, err := a.runtime.BuildState(ctx, *session, plugin.Message{SessionID: *session})
	if err != nil {
		return err
	}
	composed := a.runtime.ComposeContext(ctx, state)
	if global.JSON {
		return printJSON(out, map[string]any{"session": *session, "context": composed})
	}
	fmt.Fprintln(out, composed)
	return nil
}

func runFacts(ctx context.Context, a *app, global globalFlags, args []string, out io.Writer) error {
	cmd := flag.NewFlagSet("facts", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	session := cmd.String("session", defaultSession, "Conversation id")
	limit := cmd.Int("limit", 20, "Maximum facts to list, 0 for all")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("facts", err.Error())
	}

	facts, err := a.facts.ListFacts(ctx, *session, *limit)
	if err != nil {
		return err
	}
	if global.JSON {
		if facts == nil {
			facts = []plugin.Fact{}
		}
		return printJSON(out, facts)
	}
	if len(facts) == 0 {
		fmt.Fprintf(out, "No facts stored for session %q.\n", *session)
		return nil
	}

	w := newTabWriter(out)
	fmt.Fprintln(w, "CREATED\tTYPE\tCLAIM")
	for _, f := range facts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.CreatedAt.Local().Format(time.DateTime), f.Type, f.Claim)
	}
	return w.Flush()
}

func runMCP(ctx context.Context, a *app, global globalFlags, logger *slog.Logger) error {
	if global.ConfigPath != "" {
		watcher, err := config.NewWatcher(global.ConfigPath, global.Profile,
			config.WithWatchOverrides(global.Sets),
			config.WithWatchLogger(logger),
		)
		if err != nil {
			return NewConfigError(err, global.ConfigPath)
		}
		watcher.OnChange(func(cfg *config.Config) {
			telemetry.SetLogLevel(cfg.Log.Level)
		})
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	server := kairosmcp.NewServer(serviceName, version, a.runtime, kairosmcp.WithLogger(logger))
	logger.Info("mcp.serving", slog.Int("plugins", len(a.runtime.Plugins())))
	return server.ServeStdio()
}
