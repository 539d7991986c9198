// Package config loads the neongrid server configuration from YAML, with
// selected fields overridable from NEONGRID_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/logging"
)

const (
	// EnvPrefix is the prefix of environment overrides, e.g. NEONGRID_LISTEN_ADDR.
	EnvPrefix = "NEONGRID"

	defaultListenAddr = ":8080"

	defaultHistoryMaxRuns       = 100
	defaultHistoryMaxLogEntries = 500
	defaultActivityMaxEntries   = 50

	defaultRateLimit = 5
	defaultBurst     = 10

	defaultMetricsPrefix = "neongrid"
	defaultJobName       = "neongrid"
	defaultPushInterval  = 30 * time.Second

	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"
)

// ErrInvalidConfig is returned by Validate and LoadConfig for unusable configuration.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the complete server configuration.
type Config struct {
	Listener   ListenerConfig               `yaml:"listener"`
	Logging    logging.Config               `yaml:"logging"`
	Operations map[string]OperationOverride `yaml:"operations"`
	History    HistoryConfig                `yaml:"history"`
	Activity   ActivityConfig               `yaml:"activity"`
	RateLimit  RateLimitConfig              `yaml:"rate_limit"`
	Monitoring MonitoringConfig             `yaml:"monitoring"`
	Schedules  []ScheduleConfig             `yaml:"schedules"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
}

// OperationOverride replaces individual fields of a kind's default
// engine.Config. Unset fields keep the default.
type OperationOverride struct {
	SuccessProbability *float64       `yaml:"success_probability,omitempty"`
	StepInterval       *time.Duration `yaml:"step_interval,omitempty"`
	MaxItems           *int           `yaml:"max_items,omitempty"`
	ItemDelay          *time.Duration `yaml:"item_delay,omitempty"`
	// Templates are the comment texts used by the comment bot.
	Templates []string `yaml:"templates,omitempty"`
}

// Apply returns base with the set fields of o replaced.
func (o OperationOverride) Apply(base engine.Config) engine.Config {
	if o.SuccessProbability != nil {
		base.SuccessProbability = *o.SuccessProbability
	}
	if o.StepInterval != nil {
		base.StepInterval = *o.StepInterval
	}
	if o.MaxItems != nil {
		base.MaxItems = *o.MaxItems
	}
	if o.ItemDelay != nil {
		base.ItemDelay = *o.ItemDelay
	}
	return base
}

// HistoryConfig bounds the in-memory run history.
type HistoryConfig struct {
	MaxRuns       int `yaml:"max_runs"`
	MaxLogEntries int `yaml:"max_log_entries"`
}

// ActivityConfig bounds the activity feed.
type ActivityConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// RateLimitConfig limits the mutating API endpoints.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate; 0 uses the default.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MonitoringConfig holds metrics settings.
type MonitoringConfig struct {
	MetricsPrefix string `yaml:"metrics_prefix"`
	// PushURL is a Prometheus remote-write endpoint. Empty exposes /metrics only.
	PushURL string `yaml:"push_url"`
	// PushInterval is how often pushed metrics are flushed.
	PushInterval time.Duration `yaml:"push_interval"`
	JobName      string        `yaml:"jobname"`
}

// ScheduleConfig starts an operation on a cron schedule.
type ScheduleConfig struct {
	Kind string `yaml:"kind"`
	// Schedule is a 5 field cron expression.
	Schedule string `yaml:"schedule"`
	// InputFile holds the items, one per line.
	InputFile string `yaml:"input_file"`
}

// envOverrides are the settings that may come from the environment.
type envOverrides struct {
	ListenAddr string `envconfig:"LISTEN_ADDR"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	LogFormat  string `envconfig:"LOG_FORMAT"`
	PushURL    string `envconfig:"PUSH_URL"`
}

// JobConfig returns the effective engine configuration for kind.
func (c *Config) JobConfig(kind engine.Kind) engine.Config {
	return c.override(kind).Apply(engine.DefaultConfig(kind))
}

// Templates returns the configured templates for kind.
func (c *Config) Templates(kind engine.Kind) []string {
	return slices.Clone(c.override(kind).Templates)
}

// override finds the entry for kind. Keys may use any form ParseKind accepts.
func (c *Config) override(kind engine.Kind) OperationOverride {
	if o, ok := c.Operations[kind.String()]; ok {
		return o
	}
	for name, o := range c.Operations {
		if k, err := engine.ParseKind(name); err == nil && k == kind {
			return o
		}
	}
	return OperationOverride{}
}

// ApplyEnv overrides fields from NEONGRID_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.ListenAddr != "" {
		c.Listener.Addr = env.ListenAddr
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Logging.Format = env.LogFormat
	}
	if env.PushURL != "" {
		c.Monitoring.PushURL = env.PushURL
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
	if c.History.MaxRuns == 0 {
		c.History.MaxRuns = defaultHistoryMaxRuns
	}
	if c.History.MaxLogEntries == 0 {
		c.History.MaxLogEntries = defaultHistoryMaxLogEntries
	}
	if c.Activity.MaxEntries == 0 {
		c.Activity.MaxEntries = defaultActivityMaxEntries
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = defaultRateLimit
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = defaultBurst
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Monitoring.PushInterval == 0 {
		c.Monitoring.PushInterval = defaultPushInterval
	}
}

// Validate checks the configuration. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Listener.Addr == "" {
		errs = append(errs, errors.New("listener addr is required"))
	}
	if c.History.MaxRuns < 0 {
		errs = append(errs, errors.New("history max_runs must not be negative"))
	}
	if c.History.MaxLogEntries < 0 {
		errs = append(errs, errors.New("history max_log_entries must not be negative"))
	}
	if c.Activity.MaxEntries < 0 {
		errs = append(errs, errors.New("activity max_entries must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if c.Monitoring.PushInterval < 0 {
		errs = append(errs, errors.New("monitoring push_interval must not be negative"))
	}

	for name, o := range c.Operations {
		kind, err := engine.ParseKind(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("operations: %w", err))
			continue
		}
		if err := o.Apply(engine.DefaultConfig(kind)).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("operations.%s: %w", name, err))
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for i, s := range c.Schedules {
		if _, err := engine.ParseKind(s.Kind); err != nil {
			errs = append(errs, fmt.Errorf("schedules[%d]: %w", i, err))
		}
		if _, err := parser.Parse(s.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("schedules[%d]: invalid cron expression %q: %w", i, s.Schedule, err))
		}
		if strings.TrimSpace(s.InputFile) == "" {
			errs = append(errs, fmt.Errorf("schedules[%d]: input_file is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Parse decodes YAML, applies environment overrides and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads the YAML config file at the given path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
