// Package toolbox holds the tools an agent may call and dispatches the
// model's tool calls to them.
package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/germanamz/gmail-agent/pkg/chats/content"
)

// ToolBox is a named set of tools. It is not safe for concurrent
// registration; calls on a fully built ToolBox may run concurrently.
type ToolBox struct {
	tools map[string]Tool
}

// New creates a ToolBox holding the given tools.
func New(tools ...Tool) *ToolBox {
	tb := &ToolBox{tools: make(map[string]Tool, len(tools))}
	tb.Register(tools...)
	return tb
}

// Register adds tools. A tool with an existing name replaces the old one.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		tb.tools[t.Name] = t
	}
}

// Get returns a tool by name.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (tb *ToolBox) Len() int {
	return len(tb.tools)
}

// Names returns the registered tool names in sorted order.
func (tb *ToolBox) Names() []string {
	names := make([]string, 0, len(tb.tools))
	for n := range tb.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Tools returns all registered tools sorted by name, so requests built from
// them are deterministic.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.tools))
	for _, n := range tb.Names() {
		result = append(result, tb.tools[n])
	}
	return result
}

// Filter returns a new ToolBox holding only the named tools. Unknown names are
// skipped.
func (tb *ToolBox) Filter(names []string) *ToolBox {
	out := New()
	for _, n := range names {
		if t, ok := tb.tools[n]; ok {
			out.Register(t)
		}
	}
	return out
}

// Call executes a tool call.
//
// A call naming an unknown tool, or carrying malformed JSON arguments, is the
// model's mistake: it yields an error observation the model can correct, and
// a nil error. A handler failure is returned as the error, together with an
// error observation, and the caller decides whether to continue.
func (tb *ToolBox) Call(ctx context.Context, tc content.ToolCall) (content.ToolResult, error) {
	t, ok := tb.tools[tc.Name]
	if !ok {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Content:    fmt.Sprintf("%s is not a valid tool, try one of [%s].", tc.Name, strings.Join(tb.Names(), ", ")),
			IsError:    true,
		}, nil
	}

	args := json.RawMessage(tc.Arguments)
	if strings.TrimSpace(tc.Arguments) == "" {
		args = json.RawMessage(`{}`)
	}
	if !json.Valid(args) {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Content:    fmt.Sprintf("invalid JSON arguments for %s: %s", tc.Name, tc.Arguments),
			IsError:    true,
		}, nil
	}

	result, err := t.Handler(ctx, args)
	if err != nil {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Content:    err.Error(),
			IsError:    true,
		}, fmt.Errorf("toolbox: %s: %w", tc.Name, err)
	}

	return content.ToolResult{
		ToolCallID: tc.ID,
		Name:       tc.Name,
		Content:    result,
	}, nil
}
