package chat

import (
	"testing"

	"github.com/germanamz/gmail-agent/pkg/chats/message"
	"github.com/germanamz/gmail-agent/pkg/chats/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValue(t *testing.T) {
	var c Chat

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Messages())
}

func TestAppend(t *testing.T) {
	c := New(message.NewText("", role.System, "be brief"))
	c.Append(message.NewText("", role.User, "hi"), message.NewText("agent", role.Assistant, "hello"))

	require.Equal(t, 3, c.Len())
	msgs := c.Messages()
	assert.Equal(t, role.User, msgs[1].Role)
	assert.Equal(t, "hello", msgs[2].TextContent())
}

func TestMessages_ReturnsCopy(t *testing.T) {
	c := New(message.NewText("", role.User, "hi"))

	msgs := c.Messages()
	msgs[0] = message.NewText("", role.User, "changed")

	assert.Equal(t, "hi", c.Messages()[0].TextContent())
}
