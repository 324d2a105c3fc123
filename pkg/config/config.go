// Package config loads and saves the carver configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the winmem configuration. Command-line flags override
// values loaded from a file.
type Config struct {
	// Output is the destination for recovered pages; "-" means stdout.
	Output string `yaml:"output"`
	// Workers is the size of the decode pool.
	Workers int `yaml:"workers"`
	// BatchSize is the number of windows submitted to the pool per batch.
	BatchSize int `yaml:"batch_size"`
	// DedupeCache is the LRU dedupe cache size in windows; 0 disables it.
	DedupeCache int `yaml:"dedupe_cache"`
	// Listen, when set, serves /metrics, /healthz and /stats on this address.
	Listen string `yaml:"listen"`
	// Catalog, when set, is the directory for the page provenance catalog.
	Catalog string `yaml:"catalog"`
	// LZ4 compresses the output stream as an LZ4 frame.
	LZ4 bool `yaml:"lz4"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output:    "-",
		Workers:   4,
		BatchSize: 8,
	}
}

// LoadConfig loads configuration from the specified path. Values absent
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
