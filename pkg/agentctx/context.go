// Package agentctx carries request identity through a context so that tool
// handlers and log lines deep in a run can tell which agent and which user
// they are acting for. It has no dependencies, so any package may import it.
package agentctx

import "context"

type (
	agentNameCtxKey struct{}
	entityIDCtxKey  struct{}
)

// WithAgentName returns a new context carrying the given agent name.
func WithAgentName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, agentNameCtxKey{}, name)
}

// AgentNameFromContext extracts the agent name from the context.
// Returns "" if no agent name is present.
func AgentNameFromContext(ctx context.Context) string {
	v, _ := ctx.Value(agentNameCtxKey{}).(string)
	return v
}

// WithEntityID returns a new context carrying the user identity the run acts
// on behalf of.
func WithEntityID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, entityIDCtxKey{}, id)
}

// EntityIDFromContext extracts the user identity, or "" if absent.
func EntityIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(entityIDCtxKey{}).(string)
	return v
}

// LogAttrs returns slog-style key/value pairs for the identities present in
// ctx.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if n := AgentNameFromContext(ctx); n != "" {
		attrs = append(attrs, "agent", n)
	}
	if id := EntityIDFromContext(ctx); id != "" {
		attrs = append(attrs, "entity", id)
	}
	return attrs
}
