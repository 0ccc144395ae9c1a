package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/germanamz/gmail-agent/pkg/failure"
	"github.com/germanamz/gmail-agent/pkg/mailagent"
	"github.com/germanamz/gmail-agent/pkg/tools/mcpserver"
)

const version = "0.1.0"

// runInstruction runs one instruction end to end: connect, then hand the
// instruction to the agent and print its answer.
func runInstruction(f *cliFlags, instruction string) error {
	cfg, log, err := setup(f)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	interactive := isTerminal(os.Stdin) && isTerminal(os.Stderr)

	if strings.TrimSpace(instruction) == "" {
		if !interactive {
			return failure.Wrap(failure.ErrConfiguration, "gmail-agent", mailagent.ErrEmptyInstruction)
		}
		if instruction, err = askInstruction(ctx); err != nil {
			return err
		}
	}

	notifier := newAuthNotifier(os.Stderr, interactive, cancel)

	a, err := newApp(ctx, cfg, log, notifier)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	_, err = a.invoker.Connect(ctx, cfg.Entity)
	notifier.Finish(err)
	if err != nil {
		return err
	}

	res, err := a.invoker.Run(ctx, cfg.Entity, instruction)
	if err != nil {
		return err
	}

	printResult(os.Stdout, os.Stderr, res, f.verbose)

	return nil
}

// runConnect only ensures the connection.
func runConnect(f *cliFlags) error {
	cfg, log, err := setup(f)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	notifier := newAuthNotifier(os.Stderr, isTerminal(os.Stdin) && isTerminal(os.Stderr), cancel)

	a, err := newApp(ctx, cfg, log, notifier)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	conn, err := a.invoker.Connect(ctx, cfg.Entity)
	notifier.Finish(err)
	if err != nil {
		return err
	}

	fmt.Printf("Gmail connected for %s (connection %s)\n", conn.EntityID, conn.ID)

	return nil
}

// runMCP serves the allow-listed actions over MCP on stdin/stdout. The
// terminal view is never used since stdin and stdout carry the protocol.
func runMCP(f *cliFlags) error {
	cfg, log, err := setup(f)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, log, newAuthNotifier(os.Stderr, false, cancel))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	tb, err := a.invoker.Toolbox(ctx, cfg.Entity)
	if err != nil {
		return err
	}

	srv := mcpserver.New("gmail-agent", version, log)
	srv.RegisterToolBox(tb)

	log.Info("serving gmail actions over mcp", "entity", cfg.Entity, "tools", tb.Names())

	err = srv.Serve(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
