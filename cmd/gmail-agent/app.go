package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/germanamz/gmail-agent/pkg/composio"
	"github.com/germanamz/gmail-agent/pkg/config"
	"github.com/germanamz/gmail-agent/pkg/connection"
	"github.com/germanamz/gmail-agent/pkg/failure"
	"github.com/germanamz/gmail-agent/pkg/mailagent"
	"github.com/germanamz/gmail-agent/pkg/modeladapter"
	"github.com/germanamz/gmail-agent/pkg/providers/mistral"
	"github.com/germanamz/gmail-agent/pkg/tools/mcpclient"
)

// app holds the wired collaborators for one process.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	model   modeladapter.Completer
	invoker *mailagent.Invoker
	closers []func() error
}

// newApp wires the tool provider, connection ensurer, action source, and
// model. notifier receives redirect URLs.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, notifier connection.Notifier) (*app, error) {
	a := &app{cfg: cfg, log: log}

	client := composio.New(cfg.Composio.BaseURL, cfg.Composio.APIKey, composio.WithLogger(log))

	ensurer := connection.NewEnsurer(client, connection.Options{
		App:          cfg.Composio.App,
		PollInterval: cfg.Connection.PollInterval,
		MaxAttempts:  cfg.Connection.MaxAttempts,
		Notifier:     notifier,
		Logger:       log,
	})

	actions, err := cfg.Agent.AllowedActions()
	if err != nil {
		return nil, err
	}

	provider, err := a.actionProvider(ctx, client)
	if err != nil {
		return nil, err
	}

	model := mistral.New(cfg.Mistral.BaseURL, cfg.Mistral.APIKey, cfg.Mistral.Model)
	model.Temperature = cfg.Mistral.Temperature
	model.MaxTokens = cfg.Mistral.MaxTokens
	a.model = model

	a.invoker = mailagent.New(provider, ensurer, a.model, mailagent.Options{
		SystemPrompt:  cfg.Agent.SystemPrompt,
		MaxIterations: cfg.Agent.MaxIterations,
		Timeout:       cfg.Agent.Timeout,
		Actions:       actions,
		Logger:        log,
	})

	return a, nil
}

func (a *app) actionProvider(ctx context.Context, client *composio.Client) (mailagent.ActionProvider, error) {
	tools := a.cfg.Tools
	if !tools.UsesMCP() {
		return composio.NewToolset(client, a.log), nil
	}

	var (
		mc  *mcpclient.MCPClient
		err error
	)
	if tools.MCPURL != "" {
		mc, err = mcpclient.NewSSE(ctx, tools.MCPURL)
	} else {
		mc, err = mcpclient.New(ctx, tools.MCPCommand[0], tools.MCPCommand[1:]...)
	}
	if err != nil {
		return nil, failure.Wrap(failure.ErrServiceUnavailable, "mcp tools", err)
	}

	a.closers = append(a.closers, mc.Close)
	a.log.Debug("actions served over mcp")

	return mcpclient.NewProvider(mc), nil
}

// Close releases resources and logs token usage.
func (a *app) Close() error {
	if r, ok := a.model.(modeladapter.UsageReporter); ok {
		if total := r.UsageTracker().Total(); total.Total() > 0 {
			a.log.Debug("token usage", "model", r.ModelName(), "tokens", total)
		}
	}

	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
