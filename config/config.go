// Package config loads the settings used to assemble a container: logging
// and container options. Values come from, in increasing precedence,
// defaults, a YAML file, .env files and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvLogLevel         = "SCOPEDI_LOG_LEVEL"
	EnvLogFormat        = "SCOPEDI_LOG_FORMAT"
	EnvEagerSingletons  = "SCOPEDI_EAGER_SINGLETONS"
	EnvMetricsNamespace = "SCOPEDI_METRICS_NAMESPACE"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var ErrInvalidFormat = errors.New("log format must be console or json")

type Config struct {
	Logging   Logging   `yaml:"logging"`
	Container Container `yaml:"container"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// Color enables colored levels in console output.
	Color bool `yaml:"color"`
}

type Container struct {
	// EagerSingletons constructs every Singleton when the provider is built.
	EagerSingletons bool `yaml:"eager_singletons"`

	// MetricsNamespace prefixes resolution metrics. Empty disables metrics.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: FormatConsole,
		},
	}
}

// Load reads the YAML file at path, if path is not empty, then applies
// variables from envFiles and finally from the process environment. Missing
// .env files are ignored; a missing YAML file is an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	vars := map[string]string{}
	for _, file := range envFiles {
		fileVars, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read env file %s: %w", file, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := vars[key]
		return v, ok && v != ""
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Logging.Format = v
	}
	if v, ok := lookup(EnvEagerSingletons); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEagerSingletons, err)
		}
		c.Container.EagerSingletons = b
	}
	if v, ok := lookup(EnvMetricsNamespace); ok {
		c.Container.MetricsNamespace = v
	}
	return nil
}

// Validate checks the logging level and format.
func (c *Config) Validate() error {
	if _, err := c.Logging.ZapLevel(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Logging.Format)
	}
}

// ZapLevel parses the configured level. An empty level is info.
func (l Logging) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}

	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
