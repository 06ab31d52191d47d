package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	EnvFile  string `toml:"env_file"`
}

// Generation controls how the pipeline engine drives work items.
type Generation struct {
	MaxAttempts           int     `toml:"max_attempts"`
	BackoffUnitSeconds    float64 `toml:"backoff_unit_seconds"`
	CheckpointInterval    int     `toml:"checkpoint_interval"`
	AttemptTimeoutSeconds int     `toml:"attempt_timeout_seconds"`
	Workers               int     `toml:"workers"`
	Resume                bool    `toml:"resume"`
}

// Backend selects and configures the generation backend.
type Backend struct {
	// Name is one of "placeholder", "http", or "command".
	Name           string   `toml:"name"`
	// ImageName and AudioName override Name for one kind when set.
	ImageName      string   `toml:"image_name"`
	AudioName      string   `toml:"audio_name"`
	BaseURL        string   `toml:"base_url"`
	APIKey         string   `toml:"api_key"`
	ImageModel     string   `toml:"image_model"`
	AudioModel     string   `toml:"audio_model"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	ImageWidth     int      `toml:"image_width"`
	ImageHeight    int      `toml:"image_height"`
	DefaultStyle   string   `toml:"default_style"`
	DefaultVoice   string   `toml:"default_voice"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// History configures the SQLite run history.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications configures ntfy run notifications. An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyOnSuccess       bool   `toml:"notify_on_success"`
}

// Config encapsulates all configuration values for assetgen.
//
// Configuration sections by subsystem:
//   - Paths: state directory and optional .env credentials file
//   - Generation: retry, checkpoint, timeout and resume behaviour
//   - Backend: which generation backend to use and how to reach it
//   - Logging: log format, level, and retention
//   - History: run history database
//   - Notifications: ntfy push notifications for finished runs
type Config struct {
	Paths         Paths         `toml:"paths"`
	Generation    Generation    `toml:"generation"`
	Backend       Backend       `toml:"backend"`
	Logging       Logging       `toml:"logging"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/assetgen/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("assetgen.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and the parent of the
// history database.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	if err := os.MkdirAll(c.LogDir(), 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.LogDir(), err)
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		dir := filepath.Dir(c.History.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogDir is where per-run structured event logs are kept.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}

// BackoffUnit is the base retry delay; attempt i waits 2^i units.
func (c *Config) BackoffUnit() time.Duration {
	return time.Duration(c.Generation.BackoffUnitSeconds * float64(time.Second))
}

// AttemptTimeout bounds a single backend call. Zero disables the bound.
func (c *Config) AttemptTimeout() time.Duration {
	if c.Generation.AttemptTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Generation.AttemptTimeoutSeconds) * time.Second
}

// BackendFor returns the backend name that serves kind ("image" or "audio").
func (c *Config) BackendFor(kind string) string {
	switch kind {
	case "image":
		if c.Backend.ImageName != "" {
			return c.Backend.ImageName
		}
	case "audio":
		if c.Backend.AudioName != "" {
			return c.Backend.AudioName
		}
	}
	return c.Backend.Name
}

// BackendTimeout returns the HTTP client timeout for network backends.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return defaultBackendTimeoutSeconds * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
