// Package providers holds concrete chat-completion adapters.
//
// Each adapter embeds [github.com/germanamz/gmail-agent/pkg/modeladapter.ModelAdapter]
// and implements its Completer interface:
//   - [github.com/germanamz/gmail-agent/pkg/providers/mistral] — Mistral chat completions with function calling
package providers
