package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateGeneration() error {
	if c.Generation.MaxAttempts < 1 {
		return errors.New("generation.max_attempts must be at least 1")
	}
	if c.Generation.CheckpointInterval < 1 || c.Generation.CheckpointInterval > maxCheckpointIntervalAllowance {
		return fmt.Errorf("generation.checkpoint_interval must be between 1 and %d", maxCheckpointIntervalAllowance)
	}
	if c.Generation.AttemptTimeoutSeconds < 0 {
		return errors.New("generation.attempt_timeout_seconds must be >= 0")
	}
	if c.Generation.Workers < 1 {
		return errors.New("generation.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateBackend() error {
	fields := []struct{ key, name string }{
		{"backend.name", c.Backend.Name},
		{"backend.image_name", c.BackendFor("image")},
		{"backend.audio_name", c.BackendFor("audio")},
	}
	for _, f := range fields {
		if err := c.validateBackendName(f.key, f.name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateBackendName(key, name string) error {
	switch name {
	case BackendPlaceholder:
		return nil
	case BackendHTTP:
		if c.Backend.BaseURL == "" {
			return errors.New("backend.base_url is required for the http backend (or set ASSETGEN_BASE_URL)")
		}
		return nil
	case BackendCommand:
		if c.Backend.Command == "" {
			return errors.New("backend.command is required for the command backend")
		}
		return nil
	default:
		return fmt.Errorf("%s: unsupported value %q (expected placeholder, http, or command)", key, name)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic: expected a full topic URL, got %q", topic)
	}
	return nil
}
