// Package usage accumulates token counts reported by chat-completion calls.
package usage

import (
	"log/slog"
	"sync"
)

// TokenCount holds input and output token counts for a single LLM call.
type TokenCount struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the sum of input and output tokens.
func (tc TokenCount) Total() int {
	return tc.InputTokens + tc.OutputTokens
}

// LogValue renders the count as a slog group.
func (tc TokenCount) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("input", tc.InputTokens),
		slog.Int("output", tc.OutputTokens),
	)
}

// Tracker accumulates usage across calls. It is safe for concurrent use;
// the zero value is ready to use.
type Tracker struct {
	mu    sync.Mutex
	calls int
	total TokenCount
	last  TokenCount
}

// Add records one call's token count.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	t.total.InputTokens += tc.InputTokens
	t.total.OutputTokens += tc.OutputTokens
	t.last = tc
}

// Last returns the most recent count. The bool is false before any call.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last, t.calls > 0
}

// Total returns the aggregate count.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Count returns the number of recorded calls.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls
}
