// Package config provides application configuration management for retrace.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config holds the retrace configuration.
type Config struct {
	Theme    string        `json:"theme"`              // Name of the active theme
	Language string        `json:"language,omitempty"` // UI language tag (e.g. "en", "es"); empty = autodetect
	Indexer  IndexerConfig `json:"indexer"`            // Indexer settings
}

// IndexerConfig holds indexer-related settings.
type IndexerConfig struct {
	Sources  []string `json:"sources"`  // Source filter (empty = all)
	Watch    bool     `json:"watch"`    // Enable file watching
	Debounce string   `json:"debounce"` // Debounce duration (e.g. "2s")
}

// DebounceDuration returns the parsed debounce duration (default: 2s).
func (c IndexerConfig) DebounceDuration() time.Duration {
	if c.Debounce != "" {
		if d, err := time.ParseDuration(c.Debounce); err == nil {
			return d
		}
	}
	return 2 * time.Second
}

// Dir returns the path to the retrace config directory.
// RETRACE_CONFIG_DIR overrides the default ~/.retrace.
func Dir() (string, error) {
	if dir := os.Getenv("RETRACE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".retrace"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Load loads the configuration from config.json under Dir(). A missing
// file yields the defaults, persisted to disk on a best-effort basis.
func Load() (Config, error) {
	configPath, err := Path()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		cfg := Default()
		_ = Save(cfg)
		return cfg, nil
	case err != nil:
		return Config{}, err
	}

	// Start from defaults so missing keys get correct values
	// (configs written before a section existed must not zero it out).
	config := Default()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	if config.Theme == "" {
		config.Theme = "dark"
	}
	return config, nil
}

// Default returns a default configuration with all defaults set.
func Default() Config {
	return Config{
		Theme: "dark",
		Indexer: IndexerConfig{
			Sources:  []string{},
			Watch:    true,
			Debounce: "2s",
		},
	}
}

// Save saves the configuration to config.json under Dir().
func Save(config Config) error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}
