package toolbox

import (
	"context"
	"encoding/json"
)

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is an executable action with a name, description, JSON Schema for its
// arguments, and a handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Schema returns the tool's input schema, or an empty object schema when none
// was declared.
func (t Tool) Schema() json.RawMessage {
	if len(t.InputSchema) == 0 {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return t.InputSchema
}
