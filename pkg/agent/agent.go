// Package agent runs a tool-calling ReAct loop (reason + act) over a prompt
// template.
//
// Each iteration renders the template with the user input and the scratchpad
// of earlier tool calls and observations, asks the completer for the next
// message, and executes any tool calls it contains. The loop ends when the
// model replies without tool calls.
package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/germanamz/gmail-agent/pkg/agentctx"
	"github.com/germanamz/gmail-agent/pkg/chats/content"
	"github.com/germanamz/gmail-agent/pkg/chats/message"
	"github.com/germanamz/gmail-agent/pkg/chats/role"
	"github.com/germanamz/gmail-agent/pkg/failure"
	"github.com/germanamz/gmail-agent/pkg/modeladapter"
	"github.com/germanamz/gmail-agent/pkg/prompt"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
)

// ErrMaxIterations is returned, as a failure.ErrModelInvocation, when the
// ReAct loop exceeds MaxIterations without the model producing a final answer.
var ErrMaxIterations = errors.New("max iterations reached")

// Step records one tool call and what it produced.
type Step struct {
	Call        content.ToolCall
	Observation string
	IsError     bool
}

// Result is the outcome of one invocation.
type Result struct {
	Output     string
	Steps      []Step
	Iterations int
}

// Options configures an Executor.
type Options struct {
	MaxIterations int          // ReAct loop limit (0 = unlimited).
	Middleware    []Middleware // Applied around Invoke().
	Logger        *slog.Logger // Step-level debug output; nil discards.
}

// Executor binds a completer, a tool box, and a prompt template.
type Executor struct {
	name      string
	template  prompt.Template
	completer modeladapter.Completer
	tools     *toolbox.ToolBox
	options   Options
	log       *slog.Logger
}

// New creates an Executor. A nil tool box means the model gets no tools.
func New(name string, tmpl prompt.Template, completer modeladapter.Completer, tools *toolbox.ToolBox, opts Options) *Executor {
	if tools == nil {
		tools = toolbox.New()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Executor{
		name:      name,
		template:  tmpl,
		completer: completer,
		tools:     tools,
		options:   opts,
		log:       log,
	}
}

// Invoke runs the loop for one input with middleware applied.
func (e *Executor) Invoke(ctx context.Context, input string) (Result, error) {
	var runner Runner = RunnerFunc(e.run)

	// Apply middleware in reverse order so the first middleware is outermost.
	for i := len(e.options.Middleware) - 1; i >= 0; i-- {
		runner = e.options.Middleware[i](runner)
	}

	return runner.Run(ctx, input)
}

func (e *Executor) run(ctx context.Context, input string) (Result, error) {
	ctx = agentctx.WithAgentName(ctx, e.name)
	log := e.log.With(agentctx.LogAttrs(ctx)...)

	tools := e.tools.Tools()

	var (
		scratchpad []message.Message
		steps      []Step
	)

	for i := 0; e.options.MaxIterations == 0 || i < e.options.MaxIterations; i++ {
		c, err := e.template.Format(e.name, prompt.Values{
			Text:     map[string]string{prompt.InputVar: input},
			Messages: map[string][]message.Message{prompt.ScratchpadVar: scratchpad},
		})
		if err != nil {
			return Result{}, err
		}
		log.DebugContext(ctx, "completing", "iteration", i+1, "messages", c.Len())

		reply, err := e.completer.Complete(ctx, c, tools)
		if err != nil {
			return Result{}, failure.Wrap(failure.ErrModelInvocation, "agent", err)
		}
		reply.Sender = e.name

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			log.DebugContext(ctx, "final answer", "iterations", i+1)
			return Result{Output: reply.TextContent(), Steps: steps, Iterations: i + 1}, nil
		}

		scratchpad = append(scratchpad, reply)

		for _, tc := range calls {
			log.DebugContext(ctx, "invoking tool", "action", tc.Name, "arguments", tc.Arguments)

			res, err := e.tools.Call(ctx, tc)
			steps = append(steps, Step{Call: tc, Observation: res.Content, IsError: res.IsError})
			if err != nil {
				return Result{}, failure.Wrap(failure.ErrToolExecution, "agent: "+tc.Name, err)
			}

			log.DebugContext(ctx, "tool observation", "action", tc.Name, "observation", res.Content, "is_error", res.IsError)
			scratchpad = append(scratchpad, message.New(e.name, role.Tool, res))
		}
	}

	return Result{}, failure.Wrap(failure.ErrModelInvocation, "agent: "+e.name, ErrMaxIterations)
}
