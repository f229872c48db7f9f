package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/minstate/pkg/state"
)

const (
	// ConfigFileName is the JSON configuration file name.
	ConfigFileName = "minstate.json"

	// YAMLConfigFileName is the YAML configuration file name. It wins over
	// the JSON file when both exist.
	YAMLConfigFileName = "minstate.yaml"

	// DefaultName is the default name of the demo state.
	DefaultName = "todo"

	// DefaultInspectAddr is the default inspector listen address.
	DefaultInspectAddr = "localhost:7070"

	// DefaultEventBuffer is the default per-client event buffer.
	DefaultEventBuffer = 64

	// DefaultWriteTimeout is the default websocket write timeout.
	DefaultWriteTimeout = "5s"
)

// ErrNotFound is returned by Load when the directory has no config file.
var ErrNotFound = errors.New("config: no minstate.yaml or minstate.json found")

// Config represents minstate.json / minstate.yaml.
type Config struct {
	// Name is the name given to the state (logs, metrics, inspector).
	Name string `json:"name,omitempty" yaml:"name,omitempty" validate:"required"`

	// Debug logs every write before listeners run.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// NoChangeNoop skips writes of identical values.
	NoChangeNoop bool `json:"noChangeNoop,omitempty" yaml:"noChangeNoop,omitempty"`

	// Log contains logger configuration.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// Inspect contains debug inspector configuration.
	Inspect InspectConfig `json:"inspect,omitempty" yaml:"inspect,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty" validate:"oneof=debug info warn error"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty" validate:"oneof=text json"`
}

// InspectConfig contains debug inspector settings.
type InspectConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" validate:"required,hostname_port"`

	// EventBuffer is the number of events queued per websocket client
	// before new events are dropped.
	EventBuffer int `json:"eventBuffer,omitempty" yaml:"eventBuffer,omitempty" validate:"min=1,max=65536"`

	// WriteTimeout bounds each websocket write (e.g., "5s").
	WriteTimeout string `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty" validate:"duration"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the emission metrics.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty" validate:"required_if=Enabled true"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name: DefaultName,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspect: InspectConfig{
			Addr:         DefaultInspectAddr,
			EventBuffer:  DefaultEventBuffer,
			WriteTimeout: DefaultWriteTimeout,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "minstate",
		},
	}
}

// Load reads configuration from dir, preferring minstate.yaml over
// minstate.json. It returns ErrNotFound when neither exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{YAMLConfigFileName, ConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
}

// LoadFile reads configuration from path. Files ending in .yaml or .yml
// are parsed as YAML, anything else as JSON. Fields missing from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config: no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format its extension
// names.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for fields a file set to empty.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Inspect.Addr == "" {
		c.Inspect.Addr = DefaultInspectAddr
	}
	if c.Inspect.EventBuffer == 0 {
		c.Inspect.EventBuffer = DefaultEventBuffer
	}
	if c.Inspect.WriteTimeout == "" {
		c.Inspect.WriteTimeout = DefaultWriteTimeout
	}
}

// ValidatorOption configures the validator.
type ValidatorOption func(*validator.Validate)

// NewValidator returns a validator with the "duration" tag registered.
func NewValidator(opts ...ValidatorOption) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := NewValidator().Struct(c); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

// WriteTimeout returns Inspect.WriteTimeout as a duration, or the default
// when it does not parse.
func (c *Config) WriteTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Inspect.WriteTimeout); err == nil {
		return d
	}
	d, _ := time.ParseDuration(DefaultWriteTimeout)
	return d
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// StateOptions translates the configuration into state options. Extra
// options are appended and win over the configured ones.
func (c *Config) StateOptions(logger *slog.Logger, extra ...state.Option) []state.Option {
	opts := []state.Option{
		state.WithName(c.Name),
		state.WithDebug(c.Debug),
		state.WithLogger(logger),
	}
	if c.NoChangeNoop {
		opts = append(opts, state.WithNoChangeNoop())
	}
	return append(opts, extra...)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{YAMLConfigFileName, ConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
