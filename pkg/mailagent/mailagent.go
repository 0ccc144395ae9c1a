// Package mailagent runs one natural-language email instruction for a user:
// it makes sure the user's Gmail connection is active, fetches the fixed set
// of Gmail actions scoped to that user, and hands them to a tool-calling
// agent together with the instruction.
package mailagent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/germanamz/gmail-agent/pkg/agent"
	"github.com/germanamz/gmail-agent/pkg/agentctx"
	"github.com/germanamz/gmail-agent/pkg/connection"
	"github.com/germanamz/gmail-agent/pkg/failure"
	"github.com/germanamz/gmail-agent/pkg/gmail"
	"github.com/germanamz/gmail-agent/pkg/modeladapter"
	"github.com/germanamz/gmail-agent/pkg/prompt"
	"github.com/germanamz/gmail-agent/pkg/tools/toolbox"
)

// Name identifies the agent in logs and message senders.
const Name = "gmail-agent"

var (
	ErrEmptyUser        = errors.New("mailagent: user id is required")
	ErrEmptyInstruction = errors.New("mailagent: instruction is required")
	ErrEmptyAnswer      = errors.New("mailagent: model returned an empty answer")
)

// ActionProvider resolves users and supplies their Gmail actions as tools.
type ActionProvider interface {
	Entity(ctx context.Context, userID string) (string, error)
	Actions(ctx context.Context, entityID string, actions ...gmail.Action) ([]toolbox.Tool, error)
}

// ConnectionEnsurer guarantees an active connection for a user.
type ConnectionEnsurer interface {
	Ensure(ctx context.Context, entityID string) (connection.Connection, error)
}

// Step is one action the agent took while answering.
type Step = agent.Step

// Result is the outcome of one instruction.
type Result struct {
	Output     string
	Steps      []Step
	Connection connection.Connection
}

// Options configures an Invoker.
type Options struct {
	SystemPrompt  string         // Defaults to prompt.SystemInstruction.
	MaxIterations int            // Agent loop bound (0 = unlimited).
	Timeout       time.Duration  // Per-run agent deadline (0 = none).
	Actions       []gmail.Action // Subset of gmail.AllowList; empty = all.
	Logger        *slog.Logger   // nil discards.
}

// Invoker wires the connection ensurer, the action provider, and the model
// together. It holds no per-run state and is safe for concurrent use.
type Invoker struct {
	actions   ActionProvider
	ensurer   ConnectionEnsurer
	completer modeladapter.Completer
	template  prompt.Template
	allow     []gmail.Action
	options   Options
	log       *slog.Logger
}

// New creates an Invoker.
func New(actions ActionProvider, ensurer ConnectionEnsurer, completer modeladapter.Completer, opts Options) *Invoker {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	allow := make([]gmail.Action, 0, len(opts.Actions))
	for _, a := range opts.Actions {
		if a.Valid() {
			allow = append(allow, a)
		}
	}
	if len(allow) == 0 {
		allow = gmail.AllowList()
	}

	return &Invoker{
		actions:   actions,
		ensurer:   ensurer,
		completer: completer,
		template:  prompt.Default(opts.SystemPrompt),
		allow:     allow,
		options:   opts,
		log:       log,
	}
}

// Run executes instruction on behalf of userID and returns the agent's final
// answer.
//
// Errors carry a failure kind: ErrConfiguration for empty inputs,
// ErrConnection when the connection cannot be made active,
// ErrServiceUnavailable when the actions cannot be fetched,
// ErrModelInvocation when the chat completion fails or yields no answer, and
// ErrToolExecution when an action fails. Nothing is retried.
func (inv *Invoker) Run(ctx context.Context, userID, instruction string) (Result, error) {
	if strings.TrimSpace(instruction) == "" {
		return Result{}, failure.Wrap(failure.ErrConfiguration, "mailagent", ErrEmptyInstruction)
	}

	ctx = agentctx.WithAgentName(ctx, Name)

	conn, tb, err := inv.prepare(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	mws := []agent.Middleware{
		agent.Recovery(),
		agent.Logger(inv.log, Name),
		agent.OutputGuardrail(requireAnswer),
	}
	if inv.options.Timeout > 0 {
		mws = append(mws, agent.Timeout(inv.options.Timeout))
	}

	exec := agent.New(Name, inv.template, inv.completer, tb, agent.Options{
		MaxIterations: inv.options.MaxIterations,
		Middleware:    mws,
		Logger:        inv.log,
	})

	res, err := exec.Invoke(agentctx.WithEntityID(ctx, conn.EntityID), instruction)
	if err != nil {
		return Result{}, err
	}

	return Result{Output: res.Output, Steps: res.Steps, Connection: conn}, nil
}

// requireAnswer rejects a run that ends without any text for the user.
func requireAnswer(res agent.Result) error {
	if strings.TrimSpace(res.Output) == "" {
		return failure.Wrap(failure.ErrModelInvocation, "mailagent", ErrEmptyAnswer)
	}
	return nil
}

// Toolbox ensures userID's connection and returns the allow-listed actions as
// a tool box, for callers that drive the actions without the agent loop.
func (inv *Invoker) Toolbox(ctx context.Context, userID string) (*toolbox.ToolBox, error) {
	_, tb, err := inv.prepare(ctx, userID)
	return tb, err
}

// Connect only ensures userID's connection.
func (inv *Invoker) Connect(ctx context.Context, userID string) (connection.Connection, error) {
	entityID, err := inv.entity(ctx, userID)
	if err != nil {
		return connection.Connection{}, err
	}
	return inv.ensure(ctx, entityID)
}

func (inv *Invoker) prepare(ctx context.Context, userID string) (connection.Connection, *toolbox.ToolBox, error) {
	entityID, err := inv.entity(ctx, userID)
	if err != nil {
		return connection.Connection{}, nil, err
	}

	conn, err := inv.ensure(ctx, entityID)
	if err != nil {
		return connection.Connection{}, nil, err
	}
	if conn.EntityID == "" {
		conn.EntityID = entityID
	}

	tb, err := inv.allowedTools(ctx, entityID)
	if err != nil {
		return connection.Connection{}, nil, err
	}

	return conn, tb, nil
}

func (inv *Invoker) entity(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", failure.Wrap(failure.ErrConfiguration, "mailagent", ErrEmptyUser)
	}

	entityID, err := inv.actions.Entity(ctx, userID)
	if err != nil {
		return "", failure.Wrap(failure.ErrServiceUnavailable, "mailagent: entity", err)
	}
	return entityID, nil
}

func (inv *Invoker) ensure(ctx context.Context, entityID string) (connection.Connection, error) {
	conn, err := inv.ensurer.Ensure(ctx, entityID)
	if err != nil {
		return connection.Connection{}, failure.Wrap(failure.ErrConnection, "mailagent: ensure connection", err)
	}
	return conn, nil
}

// allowedTools fetches the allow-listed actions and drops anything else the
// provider returns.
func (inv *Invoker) allowedTools(ctx context.Context, entityID string) (*toolbox.ToolBox, error) {
	allow := inv.allow

	tools, err := inv.actions.Actions(ctx, entityID, allow...)
	if err != nil {
		return nil, failure.Wrap(failure.ErrServiceUnavailable, "mailagent: fetch actions", err)
	}

	names := make([]string, 0, len(allow))
	for _, a := range allow {
		names = append(names, a.ToolName())
	}

	tb := toolbox.New(tools...).Filter(names)
	if dropped := len(tools) - tb.Len(); dropped > 0 {
		inv.log.WarnContext(ctx, "dropped actions outside the allow-list", "entity", entityID, "dropped", dropped)
	}
	inv.log.DebugContext(ctx, "actions ready", "entity", entityID, "tools", tb.Names())

	return tb, nil
}
