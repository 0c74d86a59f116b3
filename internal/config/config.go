package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/cascade/internal/errors"
	"github.com/vango-dev/cascade/pkg/cascade"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "cascade.json"

	// DefaultInspectPort is the default inspector port.
	DefaultInspectPort = 7357

	// DefaultInspectHost is the default inspector host.
	DefaultInspectHost = "localhost"

	// DefaultScenarioDir is where scenario files are looked up.
	DefaultScenarioDir = "scenarios"

	// DefaultTraceDir is where traces are saved without S3.
	DefaultTraceDir = ".cascade/traces"

	// DefaultNamespace is the Prometheus namespace.
	DefaultNamespace = "cascade"
)

// Config represents cascade.json.
type Config struct {
	// Scenarios is the scenario directory.
	Scenarios string `json:"scenarios,omitempty"`

	Scheduler SchedulerConfig `json:"scheduler"`
	Log       LogConfig       `json:"log"`
	Inspect   InspectConfig   `json:"inspect"`
	Metrics   MetricsConfig   `json:"metrics"`
	Traces    TraceConfig     `json:"traces"`

	configPath string
}

// SchedulerConfig bounds re-entrant work.
type SchedulerConfig struct {
	// MaxReentrantPasses bounds how often a node may re-render itself from
	// its own completion hooks in one run.
	MaxReentrantPasses int `json:"maxReentrantPasses,omitempty"`

	// MaxFlushPasses bounds the passes of one run.
	MaxFlushPasses int `json:"maxFlushPasses,omitempty"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// InspectConfig configures the inspector server.
type InspectConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Namespace   string            `json:"namespace,omitempty"`
	Subsystem   string            `json:"subsystem,omitempty"`
	ConstLabels map[string]string `json:"constLabels,omitempty"`
}

// TraceConfig selects the trace store. S3 is used when a bucket is set.
type TraceConfig struct {
	Dir string   `json:"dir,omitempty"`
	S3  S3Config `json:"s3,omitempty"`
}

// S3Config configures the S3 trace store.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Scenarios: DefaultScenarioDir,
		Scheduler: SchedulerConfig{
			MaxReentrantPasses: cascade.DefaultMaxReentrantPasses,
			MaxFlushPasses:     cascade.DefaultMaxFlushPasses,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspect: InspectConfig{
			Host: DefaultInspectHost,
			Port: DefaultInspectPort,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Traces: TraceConfig{
			Dir: DefaultTraceDir,
		},
	}
}

// Load loads cascade.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadOrDefault loads cascade.json from dir, or returns the defaults
// rooted at dir when the file does not exist.
func LoadOrDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	cfg, err := LoadFile(path)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		cfg = New()
		cfg.configPath = path
		return cfg, nil
	}
	return nil, err
}

// LoadFile loads a configuration file from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C080").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				Wrap(err)
		}
		return nil, errors.New("C080").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C080").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON").
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// Save writes the configuration back to where it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("C080").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C080").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the configuration was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the configuration file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

func (c *Config) applyDefaults() {
	if c.Scenarios == "" {
		c.Scenarios = DefaultScenarioDir
	}
	if c.Scheduler.MaxReentrantPasses == 0 {
		c.Scheduler.MaxReentrantPasses = cascade.DefaultMaxReentrantPasses
	}
	if c.Scheduler.MaxFlushPasses == 0 {
		c.Scheduler.MaxFlushPasses = cascade.DefaultMaxFlushPasses
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Inspect.Host == "" {
		c.Inspect.Host = DefaultInspectHost
	}
	if c.Inspect.Port == 0 {
		c.Inspect.Port = DefaultInspectPort
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Traces.Dir == "" {
		c.Traces.Dir = DefaultTraceDir
	}
	if c.Traces.S3.Bucket != "" && c.Traces.S3.Region == "" {
		c.Traces.S3.Region = "us-east-1"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch {
	case c.Scheduler.MaxReentrantPasses < 0:
		return errors.New("C081").WithDetail("scheduler.maxReentrantPasses must not be negative")
	case c.Scheduler.MaxFlushPasses < 0:
		return errors.New("C081").WithDetail("scheduler.maxFlushPasses must not be negative")
	case c.Inspect.Port < 0 || c.Inspect.Port > 65535:
		return errors.New("C081").WithDetail("inspect.port must be between 0 and 65535")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		return errors.New("C081").WithDetail(`log.format must be "text" or "json", got "` + f + `"`)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, errors.New("C081").
			WithDetail("log.level must be one of debug, info, warn, error").
			Wrap(err)
	}
	return level, nil
}

// Logger builds the slog logger described by Log, writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SchedulerOptions converts the scheduler limits to cascade options.
func (c *Config) SchedulerOptions() []cascade.Option {
	return []cascade.Option{
		cascade.WithMaxReentrantPasses(c.Scheduler.MaxReentrantPasses),
		cascade.WithMaxFlushPasses(c.Scheduler.MaxFlushPasses),
	}
}

// InspectAddress returns the inspector listen address.
func (c *Config) InspectAddress() string {
	return net.JoinHostPort(c.Inspect.Host, strconv.Itoa(c.Inspect.Port))
}

// ScenarioPath returns the absolute scenario directory.
func (c *Config) ScenarioPath() string {
	return c.resolve(c.Scenarios)
}

// TracePath returns the absolute trace directory.
func (c *Config) TracePath() string {
	return c.resolve(c.Traces.Dir)
}

// UseS3 reports whether traces go to S3.
func (c *Config) UseS3() bool {
	return c.Traces.S3.Bucket != ""
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}
