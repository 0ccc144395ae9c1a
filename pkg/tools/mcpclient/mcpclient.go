// Package mcpclient consumes Gmail actions published by an MCP server, as an
// alternative to calling the tool provider's HTTP API directly.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/germanamz/gmail-agent/pkg/gmail"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPClient communicates with an MCP server using the official MCP Go SDK.
type MCPClient struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

// New spawns an MCP server process and returns a connected client.
// The SDK handles initialization automatically during Connect.
func New(ctx context.Context, command string, args ...string) (*MCPClient, error) {
	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command is caller-provided by design
	}

	return newFromTransport(ctx, transport)
}

// NewSSE connects to an SSE-based MCP server at the given URL.
func NewSSE(ctx context.Context, url string) (*MCPClient, error) {
	transport := &mcp.SSEClientTransport{Endpoint: url}

	return newFromTransport(ctx, transport)
}

func newFromTransport(ctx context.Context, transport mcp.Transport) (*MCPClient, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "gmail-agent",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}

	return &MCPClient{client: client, session: session}, nil
}

// ListTools fetches available tools from the server. Each Tool's Handler
// calls back through CallTool.
func (c *MCPClient) ListTools(ctx context.Context) ([]toolbox.Tool, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	tools := make([]toolbox.Tool, 0, len(result.Tools))
	for _, sdkTool := range result.Tools {
		t, err := fromSDKTool(sdkTool, c)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: convert tool %q: %w", sdkTool.Name, err)
		}
		tools = append(tools, t)
	}

	return tools, nil
}

// CallTool calls a named tool on the server with the given arguments. An
// error result from the server is returned as an error.
func (c *MCPClient) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	var args map[string]any
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("mcpclient: unmarshal arguments: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call tool: %w", err)
	}

	text := extractText(result)

	if result.IsError {
		return "", fmt.Errorf("mcpclient: tool error: %s", text)
	}

	return text, nil
}

// Close terminates the session. For command transports the SDK also stops
// the subprocess.
func (c *MCPClient) Close() error {
	return c.session.Close()
}

// Provider serves Gmail actions from an MCP server. The server is expected to
// be scoped to one user already, so Actions ignores the entity id.
type Provider struct {
	client *MCPClient
}

// NewProvider wraps a connected client.
func NewProvider(c *MCPClient) *Provider {
	return &Provider{client: c}
}

// Entity validates the user id and returns it unchanged.
func (p *Provider) Entity(_ context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("mcpclient: entity id is required")
	}
	return id, nil
}

// Actions returns one tool per requested action, in request order. A server
// tool matches an action by tool name or provider slug, case-insensitively;
// the returned tool is renamed to the action's tool name.
func (p *Provider) Actions(ctx context.Context, _ string, actions ...gmail.Action) ([]toolbox.Tool, error) {
	served, err := p.client.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]toolbox.Tool, len(served))
	for _, t := range served {
		byName[strings.ToLower(t.Name)] = t
	}

	tools := make([]toolbox.Tool, 0, len(actions))
	for _, a := range actions {
		t, ok := byName[a.ToolName()]
		if !ok {
			return nil, fmt.Errorf("mcpclient: server does not serve %s", a.Slug())
		}
		t.Name = a.ToolName()
		tools = append(tools, t)
	}

	return tools, nil
}

// fromSDKTool converts an SDK *mcp.Tool to a toolbox.Tool. The handler
// closure calls CallTool on the client.
func fromSDKTool(sdkTool *mcp.Tool, c *MCPClient) (toolbox.Tool, error) {
	schemaBytes, err := json.Marshal(sdkTool.InputSchema)
	if err != nil {
		return toolbox.Tool{}, fmt.Errorf("marshal input schema: %w", err)
	}

	name := sdkTool.Name

	return toolbox.Tool{
		Name:        sdkTool.Name,
		Description: sdkTool.Description,
		InputSchema: json.RawMessage(schemaBytes),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			return c.CallTool(ctx, name, input)
		},
	}, nil
}

// extractText joins all TextContent items from a CallToolResult with newlines.
func extractText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	return strings.Join(texts, "\n")
}
