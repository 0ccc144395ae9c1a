package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/germanamz/gmail-agent/pkg/config"
	"github.com/germanamz/gmail-agent/pkg/failure"
)

// cliFlags are shared by every command.
type cliFlags struct {
	configPath string
	envFile    string
	entity     string
	mcpURL     string
	verbose    bool
}

func registerFlags(fs *flag.FlagSet) *cliFlags {
	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "path to YAML configuration file (optional)")
	fs.StringVar(&f.envFile, "env", ".env", "path to .env file (ignored if missing)")
	fs.StringVar(&f.entity, "entity", "", "user identity the actions run for (default from config, then \"default\")")
	fs.StringVar(&f.mcpURL, "mcp-url", "", "fetch Gmail actions from this MCP SSE endpoint instead of the Composio API")
	fs.BoolVar(&f.verbose, "verbose", false, "log every agent step, tool call and observation")
	return f
}

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "mcp":
			fs := flag.NewFlagSet("mcp", flag.ExitOnError)
			fs.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: gmail-agent mcp [flags]\n\nServe the user's Gmail actions over MCP on stdin/stdout.\n\nFlags:\n")
				fs.PrintDefaults()
			}
			f := registerFlags(fs)
			_ = fs.Parse(os.Args[2:])

			exit(runMCP(f))
			return
		case "connect":
			fs := flag.NewFlagSet("connect", flag.ExitOnError)
			fs.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: gmail-agent connect [flags]\n\nMake sure the user's Gmail connection is active, authorizing it if needed.\n\nFlags:\n")
				fs.PrintDefaults()
			}
			f := registerFlags(fs)
			_ = fs.Parse(os.Args[2:])

			exit(runConnect(f))
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmail-agent [flags] [instruction...]\n       gmail-agent <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  connect  Authorize the Gmail connection and exit\n  mcp      Serve the Gmail actions over MCP stdio\n")
	}

	f := registerFlags(flag.CommandLine)
	flag.Parse()

	exit(runInstruction(f, strings.Join(flag.Args(), " ")))
}

// exit prints err as "<Kind>: <message>" on stderr and exits non-zero.
func exit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, formatError(err, isTerminal(os.Stderr)))
	os.Exit(1)
}

func formatError(err error, styled bool) string {
	kind := failure.KindName(err)
	msg := failure.Message(err)
	if styled {
		return errorKindStyle.Render(kind+":") + " " + msg
	}
	return kind + ": " + msg
}

// setup loads configuration and builds the logger shared by all commands.
func setup(f *cliFlags) (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg.ApplyEnv()

	if f.entity != "" {
		cfg.Entity = f.entity
	}
	if f.mcpURL != "" {
		cfg.Tools.MCPURL = f.mcpURL
		cfg.Tools.MCPCommand = nil
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	log := newLogger(os.Stderr, f.verbose)
	log.Debug("configuration loaded", "config", cfg.String())

	return cfg, log, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
