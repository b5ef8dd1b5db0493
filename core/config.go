package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds process-wide settings shared by every subsystem: which
// logger to hand out by default, and where the durable namespace for
// Redis-backed or file-backed state lives. Subsystem-specific tuning
// (simulation iterations, consensus quorum, breaker thresholds, ...) lives
// in that subsystem's own Config type and is composed independently; this
// type only carries the cross-cutting ambient settings every constructor
// needs, following the teacher's three-layer priority:
//  1. defaults, 2. environment variables, 3. functional options.
type Config struct {
	Namespace string `json:"namespace"`
	Logging   LoggingConfig
	logger    Logger
}

// LoggingConfig controls the default ProductionLogger.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug|info|warn|error
	Format string `json:"format"` // json|text
	Output string `json:"output"` // stdout|stderr
}

// Option mutates a Config during construction.
type Option func(*Config) error

// WithLogger overrides the logger handed to every subsystem.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithNamespace overrides the durable-state namespace.
func WithNamespace(ns string) Option {
	return func(c *Config) error {
		if ns == "" {
			return fmt.Errorf("%w: namespace must not be empty", ErrInvalidConfiguration)
		}
		c.Namespace = ns
		return nil
	}
}

// DefaultConfig returns the zero-configuration baseline.
func DefaultConfig() *Config {
	return &Config{
		Namespace: DefaultNamespace,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadFromEnv overlays environment variables onto the current values.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvNamespace); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	return nil
}

// NewConfig assembles a Config the same way the teacher assembles its
// framework Config: defaults, then environment, then functional options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if cfg.logger == nil {
		cfg.logger = NewProductionLogger(cfg.Logging)
	}
	return cfg, nil
}

// Logger returns the configured default logger.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		return &NoOpLogger{}
	}
	return c.logger
}

// ProductionLogger is a dependency-free structured logger: JSON lines for
// production aggregation, a readable single line for local development —
// the same layered shape as the teacher's telemetry logger, minus the
// metrics-emission layer (this module has no metrics backend of its own).
type ProductionLogger struct {
	level  int
	format string
	output *os.File
}

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) int {
	switch strings.ToLower(s) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// NewProductionLogger builds a Logger from LoggingConfig.
func NewProductionLogger(cfg LoggingConfig) Logger {
	out := os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}
	format := cfg.Format
	if format == "" {
		format = "text"
	}
	return &ProductionLogger{level: parseLevel(cfg.Level), format: format, output: out}
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.log(levelInfo, "INFO", msg, fields)
}
func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.log(levelError, "ERROR", msg, fields)
}
func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.log(levelWarn, "WARN", msg, fields)
}
func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	p.log(levelDebug, "DEBUG", msg, fields)
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.Info(msg, fields)
}
func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.Error(msg, fields)
}
func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.Warn(msg, fields)
}
func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.Debug(msg, fields)
}

func (p *ProductionLogger) log(level int, levelName, msg string, fields map[string]interface{}) {
	if level < p.level {
		return
	}
	ts := time.Now().Format(time.RFC3339)
	if p.format == "json" {
		entry := map[string]interface{}{"timestamp": ts, "level": levelName, "message": msg}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
		return
	}
	var b strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	fmt.Fprintf(p.output, "%s [%s] %s%s\n", ts, levelName, msg, b.String())
}
