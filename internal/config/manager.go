// Package config persists user preferences under the OS config dir and
// layers OTTO_* environment overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the user's persistent preferences. Zero values mean
// "use the built-in default".
type Config struct {
	Provider     string `json:"provider,omitempty"`      // openai, anthropic, deepseek, ...
	Model        string `json:"model,omitempty"`         // default model name
	MaxSteps     int    `json:"max_steps,omitempty"`     // step budget per task
	MaxErrors    int    `json:"max_errors,omitempty"`    // error budget per task
	ApprovalMode string `json:"approval_mode,omitempty"` // always, never, on-destructive
	Streaming    bool   `json:"streaming,omitempty"`
	ArchiveTasks bool   `json:"archive_tasks"` // keep a sqlite transcript of finished tasks
}

// Manager loads and saves the configuration file.
type Manager struct {
	configDir string
}

// NewManager resolves the otto config directory.
func NewManager() (*Manager, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(base, "otto")}, nil
}

// Dir returns the otto config directory.
func (m *Manager) Dir() string { return m.configDir }

// Path returns the absolute path of config.json.
func (m *Manager) Path() string {
	return filepath.Join(m.configDir, "config.json")
}

// ArchivePath returns where the task archive database lives.
func (m *Manager) ArchivePath() string {
	return filepath.Join(m.configDir, "tasks.db")
}

// Load reads the config file and applies environment overrides. A
// missing file yields defaults, not an error.
func (m *Manager) Load() (*Config, error) {
	cfg := &Config{ArchiveTasks: true}

	data, err := os.ReadFile(m.Path())
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.Path(), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes the config with owner-only permissions: it may hold
// provider choices users consider private.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Exists reports whether a config file has been written.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.Path())
	return !os.IsNotExist(err)
}

// applyEnv layers OTTO_* variables over the file contents.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OTTO_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("OTTO_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("OTTO_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSteps = n
		}
	}
	if v := os.Getenv("OTTO_MAX_ERRORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxErrors = n
		}
	}
	if v := os.Getenv("OTTO_APPROVAL"); v != "" {
		cfg.ApprovalMode = v
	}
	if v := os.Getenv("OTTO_STREAM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Streaming = b
		}
	}
	if v := os.Getenv("OTTO_ARCHIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ArchiveTasks = b
		}
	}
}
