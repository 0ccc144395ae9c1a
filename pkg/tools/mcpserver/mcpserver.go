// Package mcpserver exposes a tool box over the Model Context Protocol, so
// MCP clients can drive a user's Gmail actions without the agent loop.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer serves tools over the MCP protocol using the official MCP Go SDK.
type MCPServer struct {
	server *mcp.Server
	log    *slog.Logger
}

// New creates a new MCPServer with the given name and version. A nil logger
// discards.
func New(name, version string, log *slog.Logger) *MCPServer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	return &MCPServer{server: server, log: log}
}

// Register adds tools to the server.
func (s *MCPServer) Register(tools ...toolbox.Tool) {
	for _, t := range tools {
		s.server.AddTool(toSDKTool(t), s.toSDKHandler(t.Name, t.Handler))
	}
}

// RegisterToolBox adds every tool of tb.
func (s *MCPServer) RegisterToolBox(tb *toolbox.ToolBox) {
	s.Register(tb.Tools()...)
}

// Serve starts serving MCP requests. It reads requests from in and writes
// responses to out. It blocks until ctx is cancelled or the transport closes.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// run starts the server with the given transport. Exported via Serve for
// production use; called directly by tests with InMemoryTransport.
func (s *MCPServer) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// toSDKTool converts a toolbox.Tool to an SDK *mcp.Tool.
func toSDKTool(t toolbox.Tool) *mcp.Tool {
	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.Schema(),
	}
}

// toSDKHandler wraps a toolbox.Handler as an SDK ToolHandler. Handler errors
// become error results so the client sees them as tool output.
func (s *MCPServer) toSDKHandler(name string, h toolbox.Handler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if args == nil {
			args = json.RawMessage("{}")
		}

		start := time.Now()
		result, err := h(ctx, args)
		if err != nil {
			s.log.WarnContext(ctx, "mcp tool failed", "action", name, "duration", time.Since(start), "error", err)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		s.log.DebugContext(ctx, "mcp tool called", "action", name, "duration", time.Since(start))

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
