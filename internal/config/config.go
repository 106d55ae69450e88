// Package config provides YAML-based configuration for the dashboard server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Backend is the remote detection service
	Backend BackendConfig `yaml:"backend"`

	// Upload validation and presentation
	Upload UploadConfig `yaml:"upload"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Advanced options
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// BackendConfig points the typed client at the detection service
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	// RequestTimeoutSeconds of zero means no timeout.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// UploadConfig contains client-side validation and reconciliation settings
type UploadConfig struct {
	AllowedTypes       []string `yaml:"allowed_types"`
	MaxFileSize        int64    `yaml:"max_file_size"`
	HistoryPageSize    int      `yaml:"history_page_size"`
	BannerMillis       int      `yaml:"banner_millis"`
	TaskMaxAgeMinutes  int      `yaml:"task_max_age_minutes"`
	CleanupIntervalMin int      `yaml:"cleanup_interval_minutes"`
}

// StorageConfig contains local state settings
type StorageConfig struct {
	DataDirectory  string `yaml:"data_directory"`
	StateDirectory string `yaml:"state_directory"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"log_level"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Backend: BackendConfig{
			BaseURL:               "http://localhost:5000",
			RequestTimeoutSeconds: 0,
		},
		Upload: UploadConfig{
			AllowedTypes:       []string{"image/jpeg", "image/png", "image/gif", "image/bmp"},
			MaxFileSize:        16 * 1024 * 1024,
			HistoryPageSize:    20,
			BannerMillis:       3000,
			TaskMaxAgeMinutes:  30,
			CleanupIntervalMin: 5,
		},
		Storage: StorageConfig{
			DataDirectory:  "./data",
			StateDirectory: "./data/state",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if the file does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unset keys keep their defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Deepfake Detection Dashboard configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.StateDirectory = filepath.Join(dataDir, "state")
	}

	if backendURL := os.Getenv("BACKEND_URL"); backendURL != "" {
		c.Backend.BaseURL = backendURL
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.StateDirectory) {
		c.Storage.StateDirectory = filepath.Join(configDir, c.Storage.StateDirectory)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetStateDir returns the directory of the persisted local key
func (c *AppConfig) GetStateDir() string {
	return c.Storage.StateDirectory
}

// RequestTimeout returns the per-request timeout for backend calls, zero for none.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

// BannerDelay is how long success banners stay visible.
func (c *AppConfig) BannerDelay() time.Duration {
	return time.Duration(c.Upload.BannerMillis) * time.Millisecond
}

// TaskMaxAge is how long finished upload tasks are retained.
func (c *AppConfig) TaskMaxAge() time.Duration {
	return time.Duration(c.Upload.TaskMaxAgeMinutes) * time.Minute
}

// CleanupInterval is the period of the upload task cleanup loop.
// Non-positive values fall back to five minutes.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Upload.CleanupIntervalMin <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Upload.CleanupIntervalMin) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.StateDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
