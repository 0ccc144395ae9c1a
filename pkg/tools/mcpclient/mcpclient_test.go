package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/germanamz/gmail-agent/pkg/gmail"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer creates an MCP server with the given tools, connects a
// client via in-memory transports, and returns the client. The server runs
// in a background goroutine tied to t.Cleanup.
func setupTestServer(t *testing.T, tools ...toolbox.Tool) *MCPClient {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-server",
		Version: "1.0.0",
	}, nil)

	for _, tool := range tools {
		handler := tool.Handler
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema(),
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := handler(ctx, req.Params.Arguments)
			if err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: result}},
			}, nil
		})
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(ctx, serverTransport)
	}()
	t.Cleanup(func() {
		cancel()
		<-serverDone
	})

	client, err := newFromTransport(ctx, clientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func echoHandler(_ context.Context, input json.RawMessage) (string, error) {
	return string(input), nil
}

func gmailTool(name string) toolbox.Tool {
	return toolbox.Tool{
		Name:        name,
		Description: "Gmail " + name,
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler:     echoHandler,
	}
}

func TestListTools(t *testing.T) {
	client := setupTestServer(t,
		toolbox.Tool{
			Name:        "GMAIL_FETCH_EMAILS",
			Description: "Fetch emails",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"max_results":{"type":"integer"}}}`),
			Handler:     echoHandler,
		},
		gmailTool("gmail_create_label"),
	)

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	toolsByName := make(map[string]toolbox.Tool, len(tools))
	for _, tool := range tools {
		toolsByName[tool.Name] = tool
	}

	fetch, ok := toolsByName["GMAIL_FETCH_EMAILS"]
	require.True(t, ok)
	assert.Equal(t, "Fetch emails", fetch.Description)
	assert.NotNil(t, fetch.Handler)
}

func TestCallToolSuccess(t *testing.T) {
	client := setupTestServer(t, gmailTool("gmail_send_email"))

	text, err := client.CallTool(context.Background(), "gmail_send_email", json.RawMessage(`{"subject":"hi"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject":"hi"}`, text)
}

func TestCallToolError(t *testing.T) {
	client := setupTestServer(t, toolbox.Tool{
		Name: "gmail_send_email",
		Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "", errors.New("quota exceeded")
		},
	})

	text, err := client.CallTool(context.Background(), "gmail_send_email", json.RawMessage(`{}`))
	require.ErrorContains(t, err, "quota exceeded")
	assert.Empty(t, text)
}

func TestNewSSE_InvalidEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewSSE(ctx, "http://127.0.0.1:1/invalid")
	assert.Error(t, err, "NewSSE should fail for unreachable endpoint")
}

func TestProvider_Actions(t *testing.T) {
	client := setupTestServer(t,
		gmailTool("GMAIL_SEND_EMAIL"),
		gmailTool("gmail_fetch_emails"),
		gmailTool("gmail_create_email_draft"),
		gmailTool("gmail_create_label"),
		gmailTool("gmail_delete_message"),
	)
	p := NewProvider(client)

	tools, err := p.Actions(context.Background(), "alice", gmail.AllowList()...)
	require.NoError(t, err)

	var names []string
	for _, tl := range tools {
		names = append(names, tl.Name)
	}
	assert.Equal(t, []string{
		"gmail_send_email", "gmail_fetch_emails", "gmail_create_email_draft", "gmail_create_label",
	}, names)

	// Renamed tools still call the server under the served name.
	out, err := tools[0].Handler(context.Background(), json.RawMessage(`{"to":"bob"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"bob"}`, out)
}

func TestProvider_MissingAction(t *testing.T) {
	p := NewProvider(setupTestServer(t, gmailTool("gmail_send_email")))

	_, err := p.Actions(context.Background(), "alice", gmail.SendEmail, gmail.CreateLabel)

	require.ErrorContains(t, err, "GMAIL_CREATE_LABEL")
}

func TestProvider_Entity(t *testing.T) {
	p := NewProvider(nil)

	id, err := p.Entity(context.Background(), " alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, err = p.Entity(context.Background(), "")
	require.Error(t, err)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name   string
		result *mcp.CallToolResult
		want   string
	}{
		{
			name:   "single text",
			result: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "hello"}}},
			want:   "hello",
		},
		{
			name: "multiple text",
			result: &mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Text: "a"},
				&mcp.TextContent{Text: "b"},
			}},
			want: "a\nb",
		},
		{
			name:   "empty content",
			result: &mcp.CallToolResult{Content: []mcp.Content{}},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText(tt.result))
		})
	}
}

func TestFromSDKTool(t *testing.T) {
	sdkTool := &mcp.Tool{
		Name:        "gmail_create_label",
		Description: "Create a label",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"label_name": map[string]any{"type": "string"},
			},
		},
	}

	tool, err := fromSDKTool(sdkTool, &MCPClient{})
	require.NoError(t, err)
	assert.Equal(t, "gmail_create_label", tool.Name)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(tool.InputSchema, &schema))
	assert.Equal(t, "object", schema["type"])
}
