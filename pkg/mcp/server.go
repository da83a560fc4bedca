// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes a runtime's plugins as MCP tools so external agents
// can call them over stdio.
package mcp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/runtime"
)

// Tool names registered next to the plugin actions.
const (
	ChatTool    = "chat"
	ContextTool = "context"
)

// DefaultSession is used when a call carries no session_id.
const DefaultSession = "mcp"

// Server wraps the mcp-go server around a LocalRuntime.
type Server struct {
	mcpServer *server.MCPServer
	runtime   *runtime.LocalRuntime
	userID    string
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithUserID sets the author id stamped on incoming messages.
func WithUserID(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.userID = id
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP server with one tool per registered action,
// plus a chat tool that runs a full turn and a context tool that returns the
// provider context.
func NewServer(name, version string, rt *runtime.LocalRuntime, opts ...Option) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		runtime:   rt,
		userID:    "mcp-client",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, d := range rt.Plugins() {
		for _, a := range d.Actions {
			s.mcpServer.AddTool(messageTool(a.Name, a.Description), s.actionHandler(a.Name))
		}
	}
	s.mcpServer.AddTool(messageTool(ChatTool, "Send a message to the agent and get its reply."), s.chatHandler)
	s.mcpServer.AddTool(mcp.NewTool(ContextTool,
		mcp.WithDescription("Return the context the agent's providers currently contribute."),
		mcp.WithString("session_id", mcp.Description("Conversation to read. Defaults to "+DefaultSession+".")),
	), s.contextHandler)
	return s
}

func messageTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user message.")),
		mcp.WithString("session_id", mcp.Description("Conversation the message belongs to. Defaults to "+DefaultSession+".")),
	)
}

func (s *Server) actionHandler(action string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, message, ok := arguments(request)
		if !ok {
			return mcp.NewToolResultError("message is required"), nil
		}
		_, state, err := s.runtime.Receive(ctx, session, s.userID, message)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := s.runtime.InvokeAction(ctx, action, state, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.runtime.Record(ctx, session, res.Reply); err != nil {
			s.logger.WarnContext(ctx, "mcp.record.error", slog.String("error", err.Error()))
		}
		s.logger.InfoContext(ctx, "mcp.tool.called",
			slog.String("tool", action),
			slog.String("session_id", session),
			slog.Bool("fallback", res.Fallback),
		)
		return contentResult(res.Reply), nil
	}
}

func (s *Server) chatHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, message, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("message is required"), nil
	}
	res, err := s.runtime.Turn(ctx, session, s.userID, message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Reply == nil {
		return mcp.NewToolResultText(""), nil
	}
	return contentResult(*res.Reply), nil
}

func (s *Server) contextHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, _, _ := arguments(request)
	state, err := s.runtime.BuildState(ctx, session, plugin.Message{SessionID: session})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.runtime.ComposeContext(ctx, state)), nil
}

func arguments(request mcp.CallToolRequest) (session, message string, ok bool) {
	args, _ := request.Params.Arguments.(map[string]any)
	session, _ = args["session_id"].(string)
	if strings.TrimSpace(session) == "" {
		session = DefaultSession
	}
	message, _ = args["message"].(string)
	return session, message, strings.TrimSpace(message) != ""
}

func contentResult(c plugin.Content) *mcp.CallToolResult {
	text := c.Text
	if len(c.Sources) > 0 {
		text += "\n\nSources:\n" + strings.Join(c.Sources, "\n")
	}
	if c.Error {
		return mcp.NewToolResultError(text)
	}
	return mcp.NewToolResultText(text)
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
