package config

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/safe"
)

// Load returns the defaults overlaid with the YAML file at path and then with
// environment overrides. An empty path skips the file. A missing file is an error only
// when required is true.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	// Apply environment variable overrides (layered configuration).
	overrides, err := LoadFromEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.envOverrides = overrides

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := safe.ReadFile(path, &safe.ReadOptions{AllowSymlinks: true})
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
