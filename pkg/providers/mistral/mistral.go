// Package mistral provides a Completer for the Mistral chat completions API
// with function calling.
package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/gmail-agent/pkg/chats/chat"
	"github.com/germanamz/gmail-agent/pkg/chats/content"
	"github.com/germanamz/gmail-agent/pkg/chats/message"
	"github.com/germanamz/gmail-agent/pkg/chats/role"
	"github.com/germanamz/gmail-agent/pkg/modeladapter"
	"github.com/germanamz/gmail-agent/pkg/modeladapter/usage"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
)

const (
	// DefaultBaseURL is the public Mistral API endpoint.
	DefaultBaseURL = "https://api.mistral.ai"
	// DefaultModel is the model used when none is configured.
	DefaultModel = "mistral-large-latest"

	completionsPath = "/v1/chat/completions"
)

// ErrEmptyChoices is returned when the API answers without any choice.
var ErrEmptyChoices = errors.New("mistral: empty choices in response")

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for Mistral.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter. An empty baseURL or model falls back to the
// defaults.
func New(baseURL, apiKey, model string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	a := &Adapter{}
	a.BaseURL = strings.TrimRight(baseURL, "/")
	a.Auth.Key = apiKey
	a.Name = model

	return a
}

// Complete sends the conversation and the declared tools to Mistral and
// returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	req := a.buildRequest(c, tools)

	var resp apiResponse
	if err := a.PostJSON(ctx, completionsPath, req, &resp); err != nil {
		return message.Message{}, fmt.Errorf("mistral: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		return message.Message{}, ErrEmptyChoices
	}

	return parseChoice(resp.Choices[0]), nil
}

// --- request types ---

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
	ToolChoice  string       `json:"tool_choice,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Name       string        `json:"name,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type,omitempty"`
	Function apiToolFunction `json:"function"`
}

// apiToolFunction.Arguments is a JSON string in requests; responses may carry
// either a string or an inline object, which argumentsString normalizes.
type apiToolFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type apiToolDef struct {
	Type     string         `json:"type"`
	Function apiToolDefFunc `json:"function"`
}

type apiToolDefFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role      string        `json:"role"`
	Content   *string       `json:"content"`
	ToolCalls []apiToolCall `json:"tool_calls,omitempty"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{
		Model:     a.Name,
		MaxTokens: a.MaxTokens,
	}

	if a.Temperature != 0 {
		t := a.Temperature
		req.Temperature = &t
	}

	if len(tools) > 0 {
		req.ToolChoice = "auto"
		req.Tools = make([]apiToolDef, len(tools))
		for i, t := range tools {
			req.Tools[i] = apiToolDef{
				Type: "function",
				Function: apiToolDefFunc{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Schema(),
				},
			}
		}
	}

	for _, m := range c.Messages() {
		req.Messages = appendMessages(req.Messages, m)
	}

	return req
}

func appendMessages(msgs []apiMessage, m message.Message) []apiMessage {
	switch m.Role {
	case role.System:
		return append(msgs, apiMessage{Role: "system", Content: m.TextContent()})

	case role.User:
		return append(msgs, apiMessage{Role: "user", Content: m.TextContent()})

	case role.Assistant:
		msg := apiMessage{Role: "assistant", Content: m.TextContent()}
		for _, tc := range m.ToolCalls() {
			args := tc.Arguments
			if strings.TrimSpace(args) == "" {
				args = "{}"
			}
			raw, _ := json.Marshal(args)
			msg.ToolCalls = append(msg.ToolCalls, apiToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: apiToolFunction{
					Name:      tc.Name,
					Arguments: raw,
				},
			})
		}
		return append(msgs, msg)

	case role.Tool:
		for _, tr := range m.ToolResults() {
			msgs = append(msgs, apiMessage{
				Role:       "tool",
				Content:    tr.Content,
				ToolCallID: tr.ToolCallID,
				Name:       tr.Name,
			})
		}
	}

	return msgs
}

func parseChoice(choice apiChoice) message.Message {
	var parts []content.Part

	if choice.Message.Content != nil && *choice.Message.Content != "" {
		parts = append(parts, content.Text{Text: *choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: argumentsString(tc.Function.Arguments),
		})
	}

	return message.New("", role.Assistant, parts...)
}

// argumentsString returns the tool arguments as a JSON object string whether
// the API encoded them as a string or as an object.
func argumentsString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "{}"
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}
