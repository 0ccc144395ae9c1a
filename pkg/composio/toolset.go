package composio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/germanamz/gmail-agent/pkg/agentctx"
	"github.com/germanamz/gmail-agent/pkg/gmail"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
)

// ErrActionFailed is returned by tool handlers when the platform reports an
// unsuccessful execution.
var ErrActionFailed = errors.New("composio: action failed")

// Toolset builds toolbox tools backed by Composio actions.
type Toolset struct {
	client *Client
	log    *slog.Logger
}

// NewToolset creates a Toolset. A nil logger discards.
func NewToolset(client *Client, log *slog.Logger) *Toolset {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Toolset{client: client, log: log}
}

// Entity resolves the identity actions run under. Composio entities are
// addressed by the caller-chosen id, so resolution only validates it.
func (ts *Toolset) Entity(_ context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("composio: entity id is required")
	}
	return id, nil
}

// Actions returns one tool per requested action, in request order. Schemas
// come from the platform; an action the platform does not know is an error.
func (ts *Toolset) Actions(ctx context.Context, entityID string, actions ...gmail.Action) ([]toolbox.Tool, error) {
	slugs := make([]string, 0, len(actions))
	for _, a := range actions {
		if !a.Valid() {
			return nil, fmt.Errorf("composio: invalid action %d", a)
		}
		slugs = append(slugs, a.Slug())
	}

	schemas, err := ts.client.ListActions(ctx, slugs)
	if err != nil {
		return nil, err
	}

	bySlug := make(map[string]ActionSchema, len(schemas))
	for _, s := range schemas {
		bySlug[strings.ToUpper(s.Name)] = s
	}

	tools := make([]toolbox.Tool, 0, len(actions))
	for _, a := range actions {
		schema, ok := bySlug[a.Slug()]
		if !ok {
			return nil, fmt.Errorf("composio: action %s not found", a.Slug())
		}
		tools = append(tools, ts.tool(entityID, a, schema))
	}

	return tools, nil
}

func (ts *Toolset) tool(entityID string, action gmail.Action, schema ActionSchema) toolbox.Tool {
	desc := schema.Description
	if desc == "" {
		desc = schema.DisplayName
	}

	return toolbox.Tool{
		Name:        action.ToolName(),
		Description: desc,
		InputSchema: schema.Parameters,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			log := ts.log.With(agentctx.LogAttrs(ctx)...)
			log.DebugContext(ctx, "executing action", "action", action.Slug())

			res, err := ts.client.ExecuteAction(ctx, action.Slug(), entityID, gmail.App, input)
			if err != nil {
				return "", err
			}
			if !res.Successful {
				msg := res.Error
				if msg == "" {
					msg = "no error detail"
				}
				log.WarnContext(ctx, "action failed", "action", action.Slug(), "error", msg)
				return "", fmt.Errorf("%w: %s: %s", ErrActionFailed, action.Slug(), msg)
			}

			if len(res.Data) == 0 || string(res.Data) == "null" {
				return "{}", nil
			}
			return string(res.Data), nil
		},
	}
}
