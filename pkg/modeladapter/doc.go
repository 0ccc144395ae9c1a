// Package modeladapter defines the chat-completion contract used by the agent
// and the embeddable base that concrete provider adapters build on.
//
// It contains:
//   - [Completer], the single method the agent loop depends on
//   - [ModelAdapter], model settings plus the shared JSON HTTP client
//   - [github.com/germanamz/gmail-agent/pkg/modeladapter/usage] — token usage tracker
//
// Concrete adapters live under pkg/providers.
package modeladapter
