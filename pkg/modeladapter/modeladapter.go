package modeladapter

import (
	"context"
	"errors"

	"github.com/germanamz/gmail-agent/pkg/chats/chat"
	"github.com/germanamz/gmail-agent/pkg/chats/message"
	"github.com/germanamz/gmail-agent/pkg/httpjson"
	"github.com/germanamz/gmail-agent/pkg/modeladapter/usage"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
)

// Completer sends a conversation to an LLM and returns the assistant's reply.
// The tools parameter declares which tools the model may call in this turn.
type Completer interface {
	Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error)
}

// UsageReporter is implemented by completers that track token usage.
// Completers embedding ModelAdapter implement it automatically.
type UsageReporter interface {
	UsageTracker() *usage.Tracker
	ModelName() string
}

// ModelAdapter holds shared state for provider adapters. Embed it in a
// concrete adapter and define Complete on the concrete type.
type ModelAdapter struct {
	httpjson.Client

	Name        string  // Model identifier (e.g. "mistral-large-latest").
	Temperature float64 // Sampling temperature; zero means provider default.
	MaxTokens   int     // Maximum tokens in the response; zero means provider default.
	Usage       usage.Tracker
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// ModelName returns the configured model identifier.
func (a *ModelAdapter) ModelName() string { return a.Name }

// Complete is a stub so that ModelAdapter alone satisfies Completer.
// Concrete adapters shadow it.
func (a *ModelAdapter) Complete(_ context.Context, _ *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
	return message.Message{}, errors.New("adapter: Complete not implemented")
}
