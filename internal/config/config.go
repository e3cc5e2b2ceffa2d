package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables overriding file settings,
// e.g. MEMENTO_NATS_URL or MEMENTO_LOG_LEVEL.
const EnvPrefix = "memento"

// Config represents the application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Bus       BusConfig       `yaml:"bus"`
	NATS      NATSConfig      `yaml:"nats"`
	Journal   JournalConfig   `yaml:"journal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig holds in-memory event store settings.
type StoreConfig struct {
	InitialCapacity int `yaml:"initial_capacity" split_words:"true"`
}

// BusConfig holds in-process event bus settings.
type BusConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size" split_words:"true"`
}

// NATSConfig holds NATS publishing settings.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix" split_words:"true"`
}

// JournalConfig holds settings for the JSON-lines event journal. A Path of
// "-" writes to stdout.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name" split_words:"true"`
	ServiceVersion string `yaml:"service_version" split_words:"true"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" envconfig:"OTLP_ENDPOINT"`
	Insecure       bool   `yaml:"insecure"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// SlogLevel returns the configured level. validate guarantees it parses.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(l.Level))
	return level
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			InitialCapacity: 1024,
		},
		Bus: BusConfig{
			Enabled:    true,
			BufferSize: 256,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "memento.events",
		},
		Journal: JournalConfig{
			Path: "-",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "memento",
			ServiceVersion: "0.1.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and MEMENTO_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.Store.InitialCapacity < 0 {
		return fmt.Errorf("store.initial_capacity must not be negative, got %d", c.Store.InitialCapacity)
	}
	if c.Bus.BufferSize < 0 {
		return fmt.Errorf("bus.buffer_size must not be negative, got %d", c.Bus.BufferSize)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("unsupported log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("unsupported log format %q: must be \"text\" or \"json\"", c.Log.Format)
	}
	return nil
}
