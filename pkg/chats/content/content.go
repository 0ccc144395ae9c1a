// Package content defines the parts a chat message is made of.
package content

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ToolCall is the model's request to invoke a tool. Arguments holds the raw
// JSON object produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolResult holds the observation returned for a ToolCall. Name repeats the
// tool name because some chat APIs require it on tool messages.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }
