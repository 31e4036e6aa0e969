package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.HistoryLimit != 500 {
		t.Errorf("Expected default history limit 500, got %d", config.HistoryLimit)
	}
	if config.TextMaxBytes != 200000 {
		t.Errorf("Expected default text max bytes 200000, got %d", config.TextMaxBytes)
	}
	if config.ImageMaxBytes != 5000000 {
		t.Errorf("Expected default image max bytes 5000000, got %d", config.ImageMaxBytes)
	}
	if !config.Dedup || config.BytePreserve || !config.SaveImages {
		t.Errorf("Unexpected default toggles: %+v", config)
	}
	if !config.IgnoreConcealed || !config.IgnoreTransient {
		t.Errorf("Expected sensitivity markers to be honored by default")
	}
	if config.PollInterval() != 300*time.Millisecond {
		t.Errorf("Expected default poll interval 300ms, got %v", config.PollInterval())
	}
	if config.DataDir != "" {
		t.Errorf("Expected default data dir empty, got %s", config.DataDir)
	}
}

func TestConfigManager_LoadNonExistent(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cm := NewConfigManagerWithPath(configPath)

	config, err := cm.Load()
	if err != nil {
		t.Fatalf("Expected no error loading non-existent config, got: %v", err)
	}

	expectedDefault := DefaultConfig()
	if config.HistoryLimit != expectedDefault.HistoryLimit {
		t.Errorf("Expected default history limit %d, got %d", expectedDefault.HistoryLimit, config.HistoryLimit)
	}
}

func TestConfigManager_LoadPartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "history_limit: 42\nsave_images: false\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := NewConfigManagerWithPath(configPath).Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.HistoryLimit != 42 {
		t.Errorf("Expected history limit 42, got %d", config.HistoryLimit)
	}
	if config.SaveImages {
		t.Error("Expected save_images false from file")
	}
	// Keys absent from the file keep their defaults
	if !config.Dedup {
		t.Error("Expected dedup to keep its default")
	}
	if config.TextMaxBytes != 200000 {
		t.Errorf("Expected default text max bytes, got %d", config.TextMaxBytes)
	}
}

func TestConfigManager_LoadInvalidFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "history_limit: [unclosed"},
		{"out of range", "history_limit: 9000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewConfigManagerWithPath(configPath).Load(); err == nil {
				t.Error("Expected error loading invalid config")
			}
		})
	}
}

func TestConfigManager_SaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cm := NewConfigManagerWithPath(configPath)

	testConfig := DefaultConfig()
	testConfig.HistoryLimit = 100
	testConfig.BytePreserve = true
	testConfig.IgnoredSources = []string{"com.example.vault", " com.example.vault ", ""}
	testConfig.DataDir = "/custom/path"

	if err := cm.Save(testConfig); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}
	if _, err := os.Stat(configPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary config file was left behind")
	}

	loadedConfig, err := cm.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.HistoryLimit != 100 {
		t.Errorf("Expected history limit 100, got %d", loadedConfig.HistoryLimit)
	}
	if !loadedConfig.BytePreserve {
		t.Error("Expected byte preserve true")
	}
	if len(loadedConfig.IgnoredSources) != 1 || loadedConfig.IgnoredSources[0] != "com.example.vault" {
		t.Errorf("Expected normalized ignore list, got %v", loadedConfig.IgnoredSources)
	}
	if loadedConfig.ResolveDataDir() != "/custom/path" {
		t.Errorf("Expected data dir /custom/path, got %s", loadedConfig.ResolveDataDir())
	}
}

func TestConfigManager_Validation(t *testing.T) {
	cm := NewConfigManagerWithPath(filepath.Join(t.TempDir(), "config.yaml"))

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			mutate:      func(c *Config) { c.HistoryLimit = 50 },
			expectError: false,
		},
		{
			name:        "zero history limit",
			mutate:      func(c *Config) { c.HistoryLimit = 0 },
			expectError: true,
			errorMsg:    "history_limit must be between 1 and 5000, got 0",
		},
		{
			name:        "excessive history limit",
			mutate:      func(c *Config) { c.HistoryLimit = 5001 },
			expectError: true,
			errorMsg:    "history_limit must be between 1 and 5000, got 5001",
		},
		{
			name:        "excessive text limit",
			mutate:      func(c *Config) { c.TextMaxBytes = 1_000_001 },
			expectError: true,
			errorMsg:    "text_max_bytes must be between 1 and 1000000, got 1000001",
		},
		{
			name:        "negative image limit",
			mutate:      func(c *Config) { c.ImageMaxBytes = -1 },
			expectError: true,
			errorMsg:    "image_max_bytes must be between 1 and 20000000, got -1",
		},
		{
			name:        "poll interval too fast",
			mutate:      func(c *Config) { c.PollIntervalMS = 10 },
			expectError: true,
			errorMsg:    "poll_interval_ms must be between 50 and 5000, got 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := cm.Save(config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %s, but got none", tt.name)
				} else if tt.errorMsg != "" && err.Error() != "invalid configuration: "+tt.errorMsg {
					t.Errorf("Expected error message '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.name, err)
			}
		})
	}
}

func TestConfigManager_Update(t *testing.T) {
	cm := NewConfigManagerWithPath(filepath.Join(t.TempDir(), "config.yaml"))

	tests := []struct {
		name        string
		key         string
		value       string
		expectError bool
	}{
		{"valid history-limit", "history-limit", "100", false},
		{"valid text-max-bytes", "text-max-bytes", "1024", false},
		{"valid image-max-bytes", "image-max-bytes", "2048", false},
		{"valid poll-interval-ms", "poll-interval-ms", "250", false},
		{"valid dedup false", "dedup", "false", false},
		{"valid byte-preserve true", "byte-preserve", "true", false},
		{"valid save-images false", "save-images", "false", false},
		{"valid ignore-concealed false", "ignore-concealed", "false", false},
		{"valid ignore-transient false", "ignore-transient", "false", false},
		{"valid ignored-sources", "ignored-sources", "a.app,b.app", false},
		{"valid data-dir", "data-dir", "/custom/path", false},
		{"invalid key", "invalid-key", "value", true},
		{"invalid history-limit", "history-limit", "not-a-number", true},
		{"out of range history-limit", "history-limit", "0", true},
		{"invalid dedup", "dedup", "maybe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cm.Update(tt.key, tt.value)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %s, but got none", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %s: %v", tt.name, err)
			}

			retrievedValue, err := cm.Get(tt.key)
			if err != nil {
				t.Errorf("Failed to get value after update: %v", err)
			} else if retrievedValue != tt.value {
				t.Errorf("Expected retrieved value %s, got %s", tt.value, retrievedValue)
			}
		})
	}
}

func TestConfigManager_List(t *testing.T) {
	cm := NewConfigManagerWithPath(filepath.Join(t.TempDir(), "config.yaml"))

	values, err := cm.List()
	if err != nil {
		t.Fatalf("Failed to list default config: %v", err)
	}

	for _, key := range Keys() {
		if _, exists := values[key]; !exists {
			t.Errorf("Expected key %s to exist in list output", key)
		}
	}
	if len(values) != len(Keys()) {
		t.Errorf("Expected %d keys, got %d", len(Keys()), len(values))
	}

	if values["history-limit"] != "500" {
		t.Errorf("Expected default history-limit 500, got %s", values["history-limit"])
	}
	if values["data-dir"] != "[default]" {
		t.Errorf("Expected default data-dir [default], got %s", values["data-dir"])
	}
}

func TestConfigManager_IgnoreUnignore(t *testing.T) {
	cm := NewConfigManagerWithPath(filepath.Join(t.TempDir(), "config.yaml"))

	added, err := cm.Ignore("com.example.vault")
	if err != nil || !added {
		t.Fatalf("Ignore() = %v, %v; want true, nil", added, err)
	}
	added, err = cm.Ignore("com.example.vault")
	if err != nil || added {
		t.Errorf("second Ignore() = %v, %v; want false, nil", added, err)
	}
	if _, err := cm.Ignore("  "); err == nil {
		t.Error("Expected error ignoring a blank source")
	}

	config, _ := cm.Load()
	if !config.IsIgnored("com.example.vault") {
		t.Error("Expected source to be ignored")
	}
	if config.IsIgnored("") {
		t.Error("Empty source must never match")
	}

	removed, err := cm.Unignore("com.example.vault")
	if err != nil || !removed {
		t.Fatalf("Unignore() = %v, %v; want true, nil", removed, err)
	}
	removed, err = cm.Unignore("com.example.vault")
	if err != nil || removed {
		t.Errorf("second Unignore() = %v, %v; want false, nil", removed, err)
	}
}

func TestConfigManager_GetConfigPath(t *testing.T) {
	configPath := "/test/config/path.yaml"
	cm := NewConfigManagerWithPath(configPath)

	if cm.GetConfigPath() != configPath {
		t.Errorf("Expected config path %s, got %s", configPath, cm.GetConfigPath())
	}
}

func TestNewConfigManager(t *testing.T) {
	configPath := NewConfigManager().GetConfigPath()

	if !filepath.IsAbs(configPath) {
		t.Errorf("Expected absolute config path, got %s", configPath)
	}
	if !strings.HasSuffix(configPath, filepath.Join("clipstash", "config.yaml")) {
		t.Errorf("Expected config path to end with clipstash/config.yaml, got %s", configPath)
	}
	if !strings.HasSuffix(DefaultDataDir(), "clipstash") {
		t.Errorf("Expected data dir to end with clipstash, got %s", DefaultDataDir())
	}
}
