package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds application configuration.
type Config struct {
	BookmarksFile     string `json:"bookmarksFile"`   // empty = detect the Chrome profile
	BookmarksFormat   string `json:"bookmarksFormat"` // "chrome", "html", or empty to infer from extension
	StoreBackend      string `json:"storeBackend"`
	StorePath         string `json:"storePath"`
	FaviconService    string `json:"faviconService"` // empty = the built-in lookup service
	FaviconTimeoutSec int    `json:"faviconTimeoutSec"`
	WarmConcurrency   int    `json:"warmConcurrency"`
	LogLevel          string `json:"logLevel"`
	LogFile           string `json:"logFile"`
	ListenAddr        string `json:"listenAddr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		StoreBackend:      BackendJSON,
		FaviconTimeoutSec: 10,
		WarmConcurrency:   8,
		LogLevel:          "info",
		ListenAddr:        "127.0.0.1:8765",
	}
}

// FaviconTimeout returns the favicon fetch timeout as a duration.
func (c Config) FaviconTimeout() time.Duration {
	return time.Duration(c.FaviconTimeoutSec) * time.Second
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.StoreBackend == "" {
		config.StoreBackend = defaults.StoreBackend
	}
	if config.FaviconTimeoutSec <= 0 {
		config.FaviconTimeoutSec = defaults.FaviconTimeoutSec
	}
	if config.WarmConcurrency <= 0 {
		config.WarmConcurrency = defaults.WarmConcurrency
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.ListenAddr == "" {
		config.ListenAddr = defaults.ListenAddr
	}

	return &config, nil
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfigFilePath returns the default config path: ~/.config/bmbox/config.json
func DefaultConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bmbox", "config.json"), nil
}
