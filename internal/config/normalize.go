package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.loadEnvFile(); err != nil {
		return err
	}
	c.normalizeGeneration()
	c.normalizeBackend()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.EnvFile = strings.TrimSpace(c.Paths.EnvFile); c.Paths.EnvFile != "" {
		if c.Paths.EnvFile, err = expandPath(c.Paths.EnvFile); err != nil {
			return fmt.Errorf("paths.env_file: %w", err)
		}
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

// loadEnvFile populates the process environment from the configured .env file.
// Existing variables win; a missing file is not an error.
func (c *Config) loadEnvFile() error {
	if c.Paths.EnvFile == "" {
		return nil
	}
	if _, err := os.Stat(c.Paths.EnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("paths.env_file: %w", err)
	}
	if err := godotenv.Load(c.Paths.EnvFile); err != nil {
		return fmt.Errorf("paths.env_file: load %s: %w", c.Paths.EnvFile, err)
	}
	return nil
}

func (c *Config) normalizeGeneration() {
	if c.Generation.MaxAttempts <= 0 {
		c.Generation.MaxAttempts = defaultMaxAttempts
	}
	if c.Generation.BackoffUnitSeconds < 0 {
		c.Generation.BackoffUnitSeconds = defaultBackoffUnitSeconds
	}
	if c.Generation.CheckpointInterval <= 0 {
		c.Generation.CheckpointInterval = defaultCheckpointInterval
	}
	if c.Generation.Workers <= 0 {
		c.Generation.Workers = defaultWorkers
	}
}

func (c *Config) normalizeBackend() {
	c.Backend.Name = strings.ToLower(strings.TrimSpace(c.Backend.Name))
	if c.Backend.Name == "" {
		c.Backend.Name = defaultBackendName
	}
	c.Backend.ImageName = strings.ToLower(strings.TrimSpace(c.Backend.ImageName))
	c.Backend.AudioName = strings.ToLower(strings.TrimSpace(c.Backend.AudioName))
	if c.Backend.APIKey == "" {
		if value, ok := os.LookupEnv(defaultAPIKeyEnv); ok {
			c.Backend.APIKey = strings.TrimSpace(value)
		}
	}
	c.Backend.BaseURL = strings.TrimSpace(c.Backend.BaseURL)
	if c.Backend.BaseURL == "" {
		if value, ok := os.LookupEnv(defaultBaseURLEnv); ok {
			c.Backend.BaseURL = strings.TrimSpace(value)
		}
	}
	c.Backend.Command = strings.TrimSpace(c.Backend.Command)
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeoutSeconds
	}
	if c.Backend.ImageWidth <= 0 {
		c.Backend.ImageWidth = defaultImageDimension
	}
	if c.Backend.ImageHeight <= 0 {
		c.Backend.ImageHeight = defaultImageDimension
	}
	if strings.TrimSpace(c.Backend.DefaultStyle) == "" {
		c.Backend.DefaultStyle = defaultImageStyle
	}
	if strings.TrimSpace(c.Backend.DefaultVoice) == "" {
		c.Backend.DefaultVoice = defaultVoicePreset
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
}
