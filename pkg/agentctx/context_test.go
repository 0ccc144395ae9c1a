package agentctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithAgentNameRoundTrip(t *testing.T) {
	ctx := WithAgentName(context.Background(), "gmail-agent")
	assert.Equal(t, "gmail-agent", AgentNameFromContext(ctx))
}

func TestAgentNameFromContext_Empty(t *testing.T) {
	assert.Empty(t, AgentNameFromContext(context.Background()))
}

func TestWithEntityID_Overwrite(t *testing.T) {
	ctx := WithEntityID(context.Background(), "alice")
	ctx = WithEntityID(ctx, "bob")
	assert.Equal(t, "bob", EntityIDFromContext(ctx))
}

func TestLogAttrs(t *testing.T) {
	assert.Empty(t, LogAttrs(context.Background()))

	ctx := WithEntityID(WithAgentName(context.Background(), "gmail-agent"), "alice")
	assert.Equal(t, []any{"agent", "gmail-agent", "entity", "alice"}, LogAttrs(ctx))
}
