// Package config loads the gmail-agent settings from an optional YAML file,
// an optional .env file, and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/gmail-agent/pkg/failure"
	"github.com/germanamz/gmail-agent/pkg/gmail"
)

// Environment variables read by ApplyEnv.
const (
	EnvComposioAPIKey = "COMPOSIO_API_KEY"
	EnvMistralAPIKey  = "MISTRAL_API_KEY"
	EnvEntity         = "GMAIL_AGENT_ENTITY"
)

// Defaults.
const (
	DefaultModel         = "mistral-large-latest"
	DefaultApp           = "gmail"
	DefaultEntity        = "default"
	DefaultPollInterval  = time.Second
	DefaultMaxAttempts   = 100
	DefaultMaxIterations = 15
)

// Config is the top-level configuration.
type Config struct {
	Entity     string           `yaml:"entity"`
	Composio   ComposioConfig   `yaml:"composio"`
	Mistral    MistralConfig    `yaml:"mistral"`
	Connection ConnectionConfig `yaml:"connection"`
	Agent      AgentConfig      `yaml:"agent"`
	Tools      ToolsConfig      `yaml:"tools"`
}

// ComposioConfig holds tool provider settings.
type ComposioConfig struct {
	APIKey  string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	BaseURL string `yaml:"base_url"`
	App     string `yaml:"app"`
}

// MistralConfig holds chat-completion settings.
type MistralConfig struct {
	APIKey      string  `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ConnectionConfig bounds the authorization wait.
type ConnectionConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// AgentConfig holds agent loop settings.
type AgentConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	Timeout       time.Duration `yaml:"timeout"` // 0 = no timeout.
	SystemPrompt  string        `yaml:"system_prompt"`
	Actions       []string      `yaml:"actions"` // Subset of the Gmail actions; empty = all.
}

// AllowedActions resolves Actions to Gmail actions. Names may be short names
// ("send_email") or provider slugs. An empty list selects every action.
func (a AgentConfig) AllowedActions() ([]gmail.Action, error) {
	if len(a.Actions) == 0 {
		return gmail.AllowList(), nil
	}
	acts, err := gmail.ParseAll(a.Actions)
	if err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "config: agent.actions", err)
	}
	return acts, nil
}

// ToolsConfig selects where the Gmail actions come from. With both fields
// empty the actions are fetched from the Composio API; otherwise from an MCP
// server reached over SSE or spawned as a command.
type ToolsConfig struct {
	MCPURL     string   `yaml:"mcp_url"`
	MCPCommand []string `yaml:"mcp_command"`
}

// UsesMCP reports whether actions come from an MCP server.
func (t ToolsConfig) UsesMCP() bool {
	return t.MCPURL != "" || len(t.MCPCommand) > 0
}

// Default returns a Config with every default applied and no credentials.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Entity == "" {
		c.Entity = DefaultEntity
	}
	if c.Composio.App == "" {
		c.Composio.App = DefaultApp
	}
	if c.Mistral.Model == "" {
		c.Mistral.Model = DefaultModel
	}
	if c.Connection.PollInterval <= 0 {
		c.Connection.PollInterval = DefaultPollInterval
	}
	if c.Connection.MaxAttempts <= 0 {
		c.Connection.MaxAttempts = DefaultMaxAttempts
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = DefaultMaxIterations
	}
}

// Load reads a YAML file and returns a Config with defaults applied. An empty
// path yields Default(). Environment variables referenced as ${VAR} or $VAR
// in the YAML are expanded before parsing, so secrets can stay in the
// environment.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, failure.Wrap(failure.ErrConfiguration, "config: load", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, failure.Wrap(failure.ErrConfiguration, "config: parse", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// LoadDotEnv loads environment variables from path. Missing files are ignored.
// Variables already set in the environment are not overwritten.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return failure.Wrap(failure.ErrConfiguration, "config: dotenv", err)
	}
	return nil
}

// ApplyEnv fills unset fields from the environment.
func (c *Config) ApplyEnv() {
	if c.Composio.APIKey == "" {
		c.Composio.APIKey = os.Getenv(EnvComposioAPIKey)
	}
	if c.Mistral.APIKey == "" {
		c.Mistral.APIKey = os.Getenv(EnvMistralAPIKey)
	}
	if v := os.Getenv(EnvEntity); v != "" && (c.Entity == "" || c.Entity == DefaultEntity) {
		c.Entity = v
	}
}

// Validate reports missing credentials and out-of-range settings as
// failure.ErrConfiguration.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Composio.APIKey) == "" {
		missing = append(missing, EnvComposioAPIKey)
	}
	if strings.TrimSpace(c.Mistral.APIKey) == "" {
		missing = append(missing, EnvMistralAPIKey)
	}
	if len(missing) > 0 {
		return failure.Newf(failure.ErrConfiguration, "config", "missing %s", strings.Join(missing, ", "))
	}

	if c.Connection.PollInterval < 0 {
		return failure.Newf(failure.ErrConfiguration, "config", "connection.poll_interval must not be negative")
	}
	if c.Connection.MaxAttempts < 0 {
		return failure.Newf(failure.ErrConfiguration, "config", "connection.max_attempts must not be negative")
	}
	if c.Agent.MaxIterations < 0 {
		return failure.Newf(failure.ErrConfiguration, "config", "agent.max_iterations must not be negative")
	}
	if c.Tools.MCPURL != "" && len(c.Tools.MCPCommand) > 0 {
		return failure.Newf(failure.ErrConfiguration, "config", "tools.mcp_url and tools.mcp_command are mutually exclusive")
	}
	if _, err := c.Agent.AllowedActions(); err != nil {
		return err
	}
	if c.Mistral.Temperature < 0 || c.Mistral.Temperature > 1.5 {
		return failure.Newf(failure.ErrConfiguration, "config", "mistral.temperature %v out of range [0, 1.5]", c.Mistral.Temperature)
	}

	return nil
}

// String renders the config with credentials masked, for debug logging.
func (c Config) String() string {
	return fmt.Sprintf("entity=%s app=%s model=%s poll=%s attempts=%d iterations=%d composio_key=%s mistral_key=%s",
		c.Entity, c.Composio.App, c.Mistral.Model, c.Connection.PollInterval,
		c.Connection.MaxAttempts, c.Agent.MaxIterations,
		mask(c.Composio.APIKey), mask(c.Mistral.APIKey))
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
