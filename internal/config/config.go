// Package config loads the exporter configuration from defaults, a YAML file and
// the environment.
package config

import (
	"time"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
)

// Config is the complete exporter configuration.
type Config struct {
	Target          TargetConfig          `yaml:"target"`
	Server          ServerConfig          `yaml:"server"`
	Collection      CollectionConfig      `yaml:"collection"`
	Instrumentation InstrumentationConfig `yaml:"instrumentation"`
	Logging         LoggingConfig         `yaml:"logging"`

	envOverrides []Override
}

// EnvOverrides lists the environment variables Load applied on top of the file.
func (c *Config) EnvOverrides() []Override {
	return c.envOverrides
}

// TargetConfig selects the instrumented program. Exactly one field must be set.
type TargetConfig struct {
	Binary string `yaml:"binary,omitempty" env:"JBX_BINARY"`
	PID    int    `yaml:"pid,omitempty" env:"JBX_PID"`
}

// ServerConfig configures the exposition endpoint.
type ServerConfig struct {
	Address         string        `yaml:"address" env:"JBX_LISTEN_ADDRESS"`
	Port            int           `yaml:"port" env:"JBX_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"JBX_SHUTDOWN_TIMEOUT"`
}

// CollectionConfig configures the translation loop.
type CollectionConfig struct {
	Interval time.Duration `yaml:"interval" env:"JBX_INTERVAL"`
}

// InstrumentationConfig locates the BPF object and the shared libraries to probe.
type InstrumentationConfig struct {
	// BPFObject defaults to the object next to the executable.
	BPFObject string `yaml:"bpf_object,omitempty" env:"JBX_BPF_OBJECT"`

	// LibraryPaths replaces the built-in FFmpeg library list when set.
	LibraryPaths []string `yaml:"library_paths,omitempty" env:"JBX_LIBRARY_PATHS"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"JBX_LOG_LEVEL"`
	Format string `yaml:"format" env:"JBX_LOG_FORMAT"`
}

// Log formats.
const (
	LogFormatPretty = "pretty"
	LogFormatJSON   = "json"
)

// Default returns the built-in configuration. It has no target.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         constants.DefaultListenAddress,
			Port:            constants.DefaultListenPort,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
		},
		Collection: CollectionConfig{
			Interval: constants.DefaultCollectionInterval,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: LogFormatPretty,
		},
	}
}
