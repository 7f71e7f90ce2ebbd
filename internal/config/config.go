package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/vango-dev/pathwatch/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "pathwatch.json"

	// DefaultAddr is the default change feed listen address.
	DefaultAddr = "localhost:7070"

	// DefaultLogLevel is the default slog level name.
	DefaultLogLevel = "info"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "pathwatch"

	// DefaultSendBuffer is the default per-client feed buffer, in messages.
	DefaultSendBuffer = 256

	// DefaultWriteTimeout bounds a single WebSocket write.
	DefaultWriteTimeout = 10 * time.Second
)

// Config represents pathwatch.json. Every field can be overridden from the
// environment after the file is read.
type Config struct {
	// Addr is the change feed listen address.
	Addr string `json:"addr,omitempty" env:"PATHWATCH_ADDR"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" env:"PATHWATCH_LOG_LEVEL"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// Feed contains change feed configuration.
	Feed FeedConfig `json:"feed"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	// Enabled exposes /metrics on the feed and records graph metrics.
	Enabled bool `json:"enabled" env:"PATHWATCH_METRICS_ENABLED"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" env:"PATHWATCH_METRICS_NAMESPACE"`
}

// FeedConfig contains change feed configuration.
type FeedConfig struct {
	// SendBuffer is the number of messages buffered per client before
	// further messages for that client are dropped.
	SendBuffer int `json:"sendBuffer,omitempty" env:"PATHWATCH_SEND_BUFFER"`

	// WriteTimeout bounds a single WebSocket write.
	WriteTimeout time.Duration `json:"writeTimeout,omitempty" env:"PATHWATCH_WRITE_TIMEOUT"`
}

// New creates a configuration with defaults.
func New() *Config {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads pathwatch.json from dir if present, then applies environment
// overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := New()
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path, then applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("P101").WithDetail(path).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("P102").WithDetail(err.Error())
	}
	cfg.configPath = path

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, cfg.Validate()
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyEnv() error {
	if err := env.Parse(c); err != nil {
		return errors.New("P103").Wrap(err)
	}
	return nil
}

// applyDefaults fills in zero values.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Feed.SendBuffer == 0 {
		c.Feed.SendBuffer = DefaultSendBuffer
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return errors.New("P104").
			WithDetail(err.Error()).
			WithSuggestion("Use one of: debug, info, warn, error")
	}
	if c.Feed.SendBuffer < 1 {
		return errors.New("P104").WithDetail(fmt.Sprintf("feed.sendBuffer must be positive, got %d", c.Feed.SendBuffer))
	}
	if c.Feed.WriteTimeout < 0 {
		return errors.New("P104").WithDetail("feed.writeTimeout must not be negative")
	}
	return nil
}

// SlogLevel returns LogLevel as a slog.Level. Invalid names map to Info;
// Validate reports them.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}
