package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the config and data directories.
const AppName = "clipstash"

// Config represents the clipstash configuration
type Config struct {
	HistoryLimit    int      `yaml:"history_limit"`
	TextMaxBytes    int      `yaml:"text_max_bytes"`
	ImageMaxBytes   int      `yaml:"image_max_bytes"`
	Dedup           bool     `yaml:"dedup"`
	BytePreserve    bool     `yaml:"byte_preserve"`
	SaveImages      bool     `yaml:"save_images"`
	IgnoreConcealed bool     `yaml:"ignore_concealed"`
	IgnoreTransient bool     `yaml:"ignore_transient"`
	IgnoredSources  []string `yaml:"ignored_sources"`
	PollIntervalMS  int      `yaml:"poll_interval_ms"`
	DataDir         string   `yaml:"data_dir,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		HistoryLimit:    500,
		TextMaxBytes:    200_000,
		ImageMaxBytes:   5_000_000,
		Dedup:           true,
		BytePreserve:    false,
		SaveImages:      true,
		IgnoreConcealed: true,
		IgnoreTransient: true,
		IgnoredSources:  []string{},
		PollIntervalMS:  300,
	}
}

// IsIgnored reports whether captures from source are dropped.
func (c *Config) IsIgnored(source string) bool {
	return source != "" && slices.Contains(c.IgnoredSources, source)
}

// PollInterval returns the clipboard polling cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ResolveDataDir returns the store root: DataDir if set, otherwise
// $XDG_DATA_HOME/clipstash.
func (c *Config) ResolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}

// DefaultDataDir returns $XDG_DATA_HOME/clipstash.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/clipstash/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// ConfigManager manages configuration persistence
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a configuration manager for the default path
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithPath(DefaultConfigPath())
}

// NewConfigManagerWithPath creates a config manager with custom config path
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Load reads the configuration from file, or returns default if file doesn't exist.
// Keys missing from the file keep their default values.
func (cm *ConfigManager) Load() (*Config, error) {
	data, err := os.ReadFile(cm.configPath)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration to file
func (cm *ConfigManager) Save(config *Config) error {
	if err := validate(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Replace atomically
	tmp := cm.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, cm.configPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validate checks value ranges and normalizes the ignore list
func validate(config *Config) error {
	checks := []struct {
		key      string
		value    int
		min, max int
	}{
		{"history_limit", config.HistoryLimit, 1, 5000},
		{"text_max_bytes", config.TextMaxBytes, 1, 1_000_000},
		{"image_max_bytes", config.ImageMaxBytes, 1, 20_000_000},
		{"poll_interval_ms", config.PollIntervalMS, 50, 5000},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%s must be between %d and %d, got %d", c.key, c.min, c.max, c.value)
		}
	}

	config.IgnoredSources = normalizeSources(config.IgnoredSources)
	return nil
}

// normalizeSources trims, drops blanks and removes duplicates, keeping order.
func normalizeSources(sources []string) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// GetConfigPath returns the path to the config file
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// field binds a kebab-case CLI key to a Config field.
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func intField(key string, ptr func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer value for %s: %s", key, value)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(key string, ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, value string) error {
			switch value {
			case "true":
				*ptr(c) = true
			case "false":
				*ptr(c) = false
			default:
				return fmt.Errorf("invalid boolean value for %s: %s (must be 'true' or 'false')", key, value)
			}
			return nil
		},
	}
}

var fields = map[string]field{
	"history-limit":    intField("history-limit", func(c *Config) *int { return &c.HistoryLimit }),
	"text-max-bytes":   intField("text-max-bytes", func(c *Config) *int { return &c.TextMaxBytes }),
	"image-max-bytes":  intField("image-max-bytes", func(c *Config) *int { return &c.ImageMaxBytes }),
	"poll-interval-ms": intField("poll-interval-ms", func(c *Config) *int { return &c.PollIntervalMS }),
	"dedup":            boolField("dedup", func(c *Config) *bool { return &c.Dedup }),
	"byte-preserve":    boolField("byte-preserve", func(c *Config) *bool { return &c.BytePreserve }),
	"save-images":      boolField("save-images", func(c *Config) *bool { return &c.SaveImages }),
	"ignore-concealed": boolField("ignore-concealed", func(c *Config) *bool { return &c.IgnoreConcealed }),
	"ignore-transient": boolField("ignore-transient", func(c *Config) *bool { return &c.IgnoreTransient }),
	"ignored-sources": {
		get: func(c *Config) string { return strings.Join(c.IgnoredSources, ",") },
		set: func(c *Config, value string) error {
			c.IgnoredSources = strings.Split(value, ",")
			return nil
		},
	},
	"data-dir": {
		get: func(c *Config) string {
			if c.DataDir == "" {
				return "[default]"
			}
			return c.DataDir
		},
		set: func(c *Config, value string) error {
			c.DataDir = value
			return nil
		},
	},
}

// Keys returns all configuration keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Update modifies a specific configuration value
func (cm *ConfigManager) Update(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	config, err := cm.Load()
	if err != nil {
		return err
	}
	if err := f.set(config, value); err != nil {
		return err
	}

	return cm.Save(config)
}

// Get returns the value for a specific configuration key
func (cm *ConfigManager) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}

	config, err := cm.Load()
	if err != nil {
		return "", err
	}
	return f.get(config), nil
}

// List returns all configuration keys and values
func (cm *ConfigManager) List() (map[string]string, error) {
	config, err := cm.Load()
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(fields))
	for k, f := range fields {
		result[k] = f.get(config)
	}
	return result, nil
}

// Ignore adds source to the ignore list. It returns false if it was
// already ignored.
func (cm *ConfigManager) Ignore(source string) (bool, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return false, fmt.Errorf("source must not be empty")
	}

	config, err := cm.Load()
	if err != nil {
		return false, err
	}
	if config.IsIgnored(source) {
		return false, nil
	}

	config.IgnoredSources = append(config.IgnoredSources, source)
	return true, cm.Save(config)
}

// Unignore removes source from the ignore list. It returns false if it
// was not ignored.
func (cm *ConfigManager) Unignore(source string) (bool, error) {
	config, err := cm.Load()
	if err != nil {
		return false, err
	}

	idx := slices.Index(config.IgnoredSources, strings.TrimSpace(source))
	if idx < 0 {
		return false, nil
	}

	config.IgnoredSources = slices.Delete(config.IgnoredSources, idx, idx+1)
	return true, cm.Save(config)
}
