package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"

	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

const (
	ServerModeDev  = "dev"
	ServerModeProd = "prod"

	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	DrainPolicyRun     = "run"
	DrainPolicyDiscard = "discard"

	historyDBFile = "engine.duckdb"
)

type Configuration struct {
	Server    Server
	Scheduler Scheduler
	Auth      Authentication
	// DataFolder holds the history database. Empty keeps it in memory.
	DataFolder string `debugmap:"visible"`
	LogFormat  string `default:"console" debugmap:"visible"`
	LogLevel   string `default:"info" debugmap:"visible"`
}

type Server struct {
	ServerMode string `default:"dev" debugmap:"visible"`
	HTTPPort   int    `default:"8000" debugmap:"visible"`
	Disabled   bool   `debugmap:"visible"`
}

type Scheduler struct {
	Name string `default:"engine" debugmap:"visible"`
	// Workers <= 0 sizes the pool to the hardware concurrency.
	Workers          int    `default:"0" debugmap:"visible"`
	DrainPolicy      string `default:"run" debugmap:"visible"`
	HistoryBuffer    int    `default:"1024" debugmap:"visible"`
	MetricsNamespace string `default:"engine" debugmap:"visible"`
}

type Authentication struct {
	Enabled bool   `debugmap:"visible"`
	Secret  string `debugmap:"hidden"`
}

// NewConfigurationWithDefaults returns a configuration populated from the
// `default` struct tags.
func NewConfigurationWithDefaults() (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set configuration defaults: %w", err)
	}
	return cfg, nil
}

func (c *Configuration) Validate() error {
	switch c.Server.ServerMode {
	case ServerModeDev, ServerModeProd:
	default:
		return fmt.Errorf("invalid server mode %q: must be %q or %q", c.Server.ServerMode, ServerModeDev, ServerModeProd)
	}
	if !c.Server.Disabled && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid http port %d", c.Server.HTTPPort)
	}
	switch strings.ToLower(c.LogFormat) {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: must be %q or %q", c.LogFormat, LogFormatConsole, LogFormatJSON)
	}
	if _, err := c.Scheduler.Policy(); err != nil {
		return err
	}
	if c.Scheduler.HistoryBuffer <= 0 {
		return fmt.Errorf("invalid history buffer %d: must be positive", c.Scheduler.HistoryBuffer)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("authentication is enabled but no secret is set")
	}
	return nil
}

// Policy maps the configured drain policy to the scheduler's.
func (s Scheduler) Policy() (scheduler.DrainPolicy, error) {
	switch strings.ToLower(s.DrainPolicy) {
	case DrainPolicyRun, "":
		return scheduler.DrainPolicyRun, nil
	case DrainPolicyDiscard:
		return scheduler.DrainPolicyDiscard, nil
	default:
		return scheduler.DrainPolicyRun, fmt.Errorf("invalid drain policy %q: must be %q or %q", s.DrainPolicy, DrainPolicyRun, DrainPolicyDiscard)
	}
}

// HistoryDBPath returns the DuckDB path for the task history.
func (c *Configuration) HistoryDBPath() string {
	if c.DataFolder == "" {
		return ":memory:"
	}
	return filepath.Join(c.DataFolder, historyDBFile)
}

// DebugMap returns the configuration for logging with secrets hidden.
func (c *Configuration) DebugMap() map[string]any {
	secret := ""
	if c.Auth.Secret != "" {
		secret = "(sensitive)"
	}
	return map[string]any{
		"server": map[string]any{
			"mode":     c.Server.ServerMode,
			"port":     c.Server.HTTPPort,
			"disabled": c.Server.Disabled,
		},
		"scheduler": map[string]any{
			"name":             c.Scheduler.Name,
			"workers":          c.Scheduler.Workers,
			"drainPolicy":      c.Scheduler.DrainPolicy,
			"historyBuffer":    c.Scheduler.HistoryBuffer,
			"metricsNamespace": c.Scheduler.MetricsNamespace,
		},
		"auth": map[string]any{
			"enabled": c.Auth.Enabled,
			"secret":  secret,
		},
		"dataFolder": c.DataFolder,
		"logFormat":  c.LogFormat,
		"logLevel":   c.LogLevel,
	}
}
