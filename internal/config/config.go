// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// the Deeting client.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.deeting/config.toml
//   - ~/.deeting/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/deeting/chatkit/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete Deeting client configuration.
type Config struct {
	// General settings
	Version      string `toml:"version" json:"version"`
	DefaultAgent string `toml:"default_agent" json:"default_agent"`

	// Runtime selection and redirect policy
	Runtime RuntimeConfig `toml:"runtime" json:"runtime"`

	// Backend service configuration
	Remote RemoteConfig `toml:"remote" json:"remote"`

	// Local persistence configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// RuntimeConfig controls runtime-kind resolution and navigation policy.
type RuntimeConfig struct {
	// DesktopBuild marks this build as targeting the desktop shell. The
	// client still runs in web mode unless the local bridge probe also
	// succeeds.
	DesktopBuild bool `toml:"desktop_build" json:"desktop_build"`
	// BridgeDir is the directory whose presence marks a usable local
	// bridge (empty = default ~/.deeting).
	BridgeDir string `toml:"bridge_dir" json:"bridge_dir"`
	// RedirectOnMissingDesktop bounces to the agent list when a desktop
	// build lands on an unknown agent.
	RedirectOnMissingDesktop bool `toml:"redirect_on_missing_desktop" json:"redirect_on_missing_desktop"`
	// RedirectOnMissingWeb does the same for web mode. Off by default so
	// agents that appear late (slow auth, sync) are not bounced away.
	RedirectOnMissingWeb bool `toml:"redirect_on_missing_web" json:"redirect_on_missing_web"`
}

// RemoteConfig contains backend service configuration.
type RemoteConfig struct {
	// APIKey is the Deeting API key
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL is the API endpoint (empty = production)
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds non-streaming requests
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the retry budget for transient failures
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RequestsPerSecond is the client-side rate limit
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// StorageConfig contains local persistence configuration.
type StorageConfig struct {
	// DBPath is the SQLite database path (empty = default ~/.deeting/deeting.db)
	DBPath string `toml:"db_path" json:"db_path"`
	// KVPath is the profile key-value store path (empty = default ~/.deeting/profile.json)
	KVPath string `toml:"kv_path" json:"kv_path"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// Streaming enables streamed responses by default
	Streaming bool `toml:"streaming" json:"streaming"`
	// HistoryLimit caps how many turns are rendered on resume (0 = all)
	HistoryLimit int `toml:"history_limit" json:"history_limit"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// Markdown renders assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Runtime: RuntimeConfig{
			DesktopBuild:             false,
			RedirectOnMissingDesktop: true,
			RedirectOnMissingWeb:     false,
		},

		Remote: RemoteConfig{
			TimeoutSecs:       30,
			MaxRetries:        3,
			RequestsPerSecond: 10,
		},

		Chat: ChatConfig{
			Streaming:    true,
			HistoryLimit: 0,
		},

		UI: UIConfig{
			Theme:       "dark",
			CompactMode: false,
			Markdown:    true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the Deeting configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".deeting"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files hold the API key, so anything looser than 0600 is tightened.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := &Config{}
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# Deeting client configuration file")
	fmt.Fprintln(file, "# Edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file. The write is atomic so
// a crash mid-save cannot truncate the config.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Remote.BaseURL != "" {
		if u, err := url.Parse(c.Remote.BaseURL); err != nil || u.Scheme == "" {
			errs = append(errs, ValidationError{
				Field:   "remote.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Remote.BaseURL),
			})
		}
	}
	if c.Remote.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "remote.timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.Remote.MaxRetries < 0 || c.Remote.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "remote.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.Remote.MaxRetries),
		})
	}
	if c.Remote.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "remote.requests_per_second",
			Message: "must be non-negative",
		})
	}

	if c.Chat.HistoryLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.history_limit",
			Message: "must be non-negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Remote.TimeoutSecs == 0 {
		c.Remote.TimeoutSecs = defaults.Remote.TimeoutSecs
	}
	if c.Remote.MaxRetries == 0 {
		c.Remote.MaxRetries = defaults.Remote.MaxRetries
	}
	if c.Remote.RequestsPerSecond == 0 {
		c.Remote.RequestsPerSecond = defaults.Remote.RequestsPerSecond
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - DEETING_API_KEY: overrides remote.api_key
//   - DEETING_BASE_URL: overrides remote.base_url
//   - DEETING_AGENT: overrides default_agent
//   - DEETING_DESKTOP: set to "1" or "true" to mark a desktop build
//   - DEETING_BRIDGE_DIR: overrides runtime.bridge_dir
//   - DEETING_DB_PATH: overrides storage.db_path
//   - DEETING_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("DEETING_API_KEY"); key != "" {
		c.Remote.APIKey = key
	}
	if base := os.Getenv("DEETING_BASE_URL"); base != "" {
		c.Remote.BaseURL = base
	}
	if agent := os.Getenv("DEETING_AGENT"); agent != "" {
		c.DefaultAgent = agent
	}
	if desktop := os.Getenv("DEETING_DESKTOP"); desktop != "" {
		c.Runtime.DesktopBuild = desktop == "1" || strings.ToLower(desktop) == "true"
	}
	if dir := os.Getenv("DEETING_BRIDGE_DIR"); dir != "" {
		c.Runtime.BridgeDir = dir
	}
	if path := os.Getenv("DEETING_DB_PATH"); path != "" {
		c.Storage.DBPath = path
	}
	if theme := os.Getenv("DEETING_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// The API key is redacted so it cannot leak into logs.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Remote.APIKey != "" {
		safe.Remote.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
