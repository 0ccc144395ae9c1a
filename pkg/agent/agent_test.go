package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/germanamz/gmail-agent/pkg/chats/chat"
	"github.com/germanamz/gmail-agent/pkg/chats/content"
	"github.com/germanamz/gmail-agent/pkg/chats/message"
	"github.com/germanamz/gmail-agent/pkg/chats/role"
	"github.com/germanamz/gmail-agent/pkg/failure"
	"github.com/germanamz/gmail-agent/pkg/prompt"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test helpers ---

// sequenceCompleter returns a sequence of preconfigured replies and records
// the chats and tools it was given.
type sequenceCompleter struct {
	replies []message.Message
	index   int
	chats   []*chat.Chat
	tools   [][]toolbox.Tool
}

func (p *sequenceCompleter) Complete(_ context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	p.chats = append(p.chats, c)
	p.tools = append(p.tools, tools)
	if p.index >= len(p.replies) {
		return message.Message{}, errors.New("no more replies")
	}
	reply := p.replies[p.index]
	p.index++
	return reply, nil
}

// errorCompleter always returns an error.
type errorCompleter struct {
	err error
}

func (p *errorCompleter) Complete(_ context.Context, _ *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
	return message.Message{}, p.err
}

func newEchoToolBox() *toolbox.ToolBox {
	return toolbox.New(toolbox.Tool{
		Name:        "echo",
		Description: "Echoes input",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			return string(input), nil
		},
	})
}

func callMsg(id, name, args string) message.Message {
	return message.New("", role.Assistant, content.ToolCall{ID: id, Name: name, Arguments: args})
}

// --- ReAct loop tests ---

func TestInvokeNoToolCalls(t *testing.T) {
	p := &sequenceCompleter{replies: []message.Message{
		message.NewText("", role.Assistant, "Done."),
	}}
	e := New("bot", prompt.Default("Be brief."), p, nil, Options{})

	res, err := e.Invoke(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "Done.", res.Output)
	assert.Empty(t, res.Steps)
	assert.Equal(t, 1, res.Iterations)

	require.Len(t, p.chats, 1)
	msgs := p.chats[0].Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, role.System, msgs[0].Role)
	assert.Equal(t, "Be brief.", msgs[0].TextContent())
	assert.Equal(t, role.User, msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].TextContent())
}

func TestInvokeToolRoundTrip(t *testing.T) {
	p := &sequenceCompleter{replies: []message.Message{
		callMsg("c1", "echo", `{"msg":"hi"}`),
		message.NewText("", role.Assistant, "Got the result."),
	}}
	e := New("bot", prompt.Default(""), p, newEchoToolBox(), Options{})

	res, err := e.Invoke(context.Background(), "say hi")

	require.NoError(t, err)
	assert.Equal(t, "Got the result.", res.Output)
	assert.Equal(t, 2, res.Iterations)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "echo", res.Steps[0].Call.Name)
	assert.JSONEq(t, `{"msg":"hi"}`, res.Steps[0].Observation)
	assert.False(t, res.Steps[0].IsError)

	// The second prompt carries the scratchpad: the tool call and its result.
	require.Len(t, p.chats, 2)
	msgs := p.chats[1].Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, role.Assistant, msgs[2].Role)
	assert.Len(t, msgs[2].ToolCalls(), 1)
	assert.Equal(t, role.Tool, msgs[3].Role)
	require.Len(t, msgs[3].ToolResults(), 1)
	assert.Equal(t, "c1", msgs[3].ToolResults()[0].ToolCallID)

	require.Len(t, p.tools[0], 1)
	assert.Equal(t, "echo", p.tools[0][0].Name)
}

func TestInvokeUnknownToolIsObservation(t *testing.T) {
	p := &sequenceCompleter{replies: []message.Message{
		callMsg("c1", "nope", `{}`),
		message.NewText("", role.Assistant, "Recovered."),
	}}
	e := New("bot", prompt.Default(""), p, newEchoToolBox(), Options{})

	res, err := e.Invoke(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "Recovered.", res.Output)
	require.Len(t, res.Steps, 1)
	assert.True(t, res.Steps[0].IsError)
	assert.Contains(t, res.Steps[0].Observation, "nope is not a valid tool")
}

func TestInvokeToolFailure(t *testing.T) {
	boom := errors.New("smtp down")
	tb := toolbox.New(toolbox.Tool{
		Name: "send",
		Handler: func(context.Context, json.RawMessage) (string, error) {
			return "", boom
		},
	})
	p := &sequenceCompleter{replies: []message.Message{
		callMsg("c1", "send", `{}`),
		message.NewText("", role.Assistant, "unreachable"),
	}}
	e := New("bot", prompt.Default(""), p, tb, Options{})

	_, err := e.Invoke(context.Background(), "send it")

	require.ErrorIs(t, err, failure.ErrToolExecution)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.index)
}

func TestInvokeCompleterError(t *testing.T) {
	boom := errors.New("401 unauthorized")
	e := New("bot", prompt.Default(""), &errorCompleter{err: boom}, newEchoToolBox(), Options{})

	_, err := e.Invoke(context.Background(), "x")

	require.ErrorIs(t, err, failure.ErrModelInvocation)
	require.ErrorIs(t, err, boom)
}

func TestInvokeMaxIterations(t *testing.T) {
	p := &sequenceCompleter{replies: []message.Message{
		callMsg("c1", "echo", `{}`),
		callMsg("c2", "echo", `{}`),
		callMsg("c3", "echo", `{}`),
	}}
	e := New("bot", prompt.Default(""), p, newEchoToolBox(), Options{MaxIterations: 2})

	_, err := e.Invoke(context.Background(), "loop")

	require.ErrorIs(t, err, ErrMaxIterations)
	require.ErrorIs(t, err, failure.ErrModelInvocation)
	assert.Equal(t, "ModelInvocationError", failure.KindName(err))
	assert.Equal(t, 2, p.index)
}

func TestInvokeAppliesMiddleware(t *testing.T) {
	p := &sequenceCompleter{replies: []message.Message{
		message.NewText("", role.Assistant, "ok"),
	}}
	var seen string
	mw := func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, input string) (Result, error) {
			seen = input
			return next.Run(ctx, input)
		})
	}
	e := New("bot", prompt.Default(""), p, nil, Options{Middleware: []Middleware{Recovery(), mw}})

	res, err := e.Invoke(context.Background(), "the input")

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Output)
	assert.Equal(t, "the input", seen)
}

func TestInvokeInputWithBraces(t *testing.T) {
	p := &sequenceCompleter{replies: []message.Message{
		message.NewText("", role.Assistant, "ok"),
	}}
	e := New("bot", prompt.Default(""), p, nil, Options{})

	_, err := e.Invoke(context.Background(), "label it {urgent}")

	require.NoError(t, err)
	assert.Equal(t, "label it {urgent}", p.chats[0].Messages()[1].TextContent())
}
