// Package config loads the docket CLI configuration.
//
// Values come from three layers, lowest priority first: built-in defaults,
// an optional YAML file, and DOCKET_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/docket/store"
)

// Environment variables that override file values.
const (
	EnvDSN                   = "DOCKET_DSN"
	EnvLogLevel              = "DOCKET_LOG_LEVEL"
	EnvLogFormat             = "DOCKET_LOG_FORMAT"
	EnvTimeout               = "DOCKET_TIMEOUT"
	EnvOptimisticConcurrency = "DOCKET_OPTIMISTIC_CONCURRENCY"
	EnvMetricsNamespace      = "DOCKET_METRICS_NAMESPACE"
)

// Config is the CLI configuration.
type Config struct {
	// DSN is the connection descriptor, e.g. "mongodb://localhost:27017/shop".
	DSN string `yaml:"dsn"`

	// Timeout bounds each command. Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// OptimisticConcurrency makes updates compare versions.
	OptimisticConcurrency bool `yaml:"optimistic_concurrency"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: warn
	Level string `yaml:"level"`

	// Format is "console" or "json". Default: console
	Format string `yaml:"format"`
}

// MetricsConfig configures repository metrics.
type MetricsConfig struct {
	// Namespace prefixes every metric name. Default: docket
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DSN:     "memory:///docket",
		Timeout: 30 * time.Second,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "docket",
		},
	}
}

// Option overrides a loaded value before validation.
type Option func(*Config)

// WithDSN overrides the DSN when dsn is non-empty. It takes precedence over
// the file and the environment.
func WithDSN(dsn string) Option {
	return func(c *Config) {
		if dsn != "" {
			c.DSN = dsn
		}
	}
}

// Load reads the file at path, if any, then applies environment overrides
// and opts, and validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode merges YAML into c. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DSN = getEnv(EnvDSN, c.DSN)
	c.Logging.Level = getEnv(EnvLogLevel, c.Logging.Level)
	c.Logging.Format = getEnv(EnvLogFormat, c.Logging.Format)
	c.Metrics.Namespace = getEnv(EnvMetricsNamespace, c.Metrics.Namespace)

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvOptimisticConcurrency); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvOptimisticConcurrency, err)
		}
		c.OptimisticConcurrency = b
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := store.ParseDescriptor(c.DSN); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging format must be console or json, got %q", c.Logging.Format)
	}
	if c.Metrics.Namespace == "" {
		return errors.New("metrics namespace is required")
	}
	return nil
}

// Logger builds the zap logger described by the logging section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}

	var zapConfig zap.Config
	if c.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths = []string{"stderr"}

	return zapConfig.Build()
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
