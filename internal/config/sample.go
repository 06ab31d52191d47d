package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	sampleBaseURL = "http://localhost:8000"
	sampleCommand = "assetgen-generate"
)

// SampleOptions tailors the [backend] stanza of a sample configuration.
type SampleOptions struct {
	// Backend is placeholder, http, or command. Empty means placeholder.
	Backend string
	// BaseURL seeds backend.base_url for the http backend.
	BaseURL string
	// Command seeds backend.command for the command backend.
	Command string
}

// RenderSample returns the sample configuration with a [backend] stanza for
// opts.Backend. The result is checked to parse.
func RenderSample(opts SampleOptions) (string, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Backend))
	if name == "" {
		name = BackendPlaceholder
	}
	stanza, err := backendStanza(name, opts)
	if err != nil {
		return "", err
	}

	start := strings.Index(sampleConfig, "[backend]\n")
	end := strings.Index(sampleConfig, "\n[logging]")
	if start < 0 || end < start {
		return "", errors.New("sample config: backend section not found")
	}
	rendered := sampleConfig[:start] + stanza + sampleConfig[end:]

	var parsed Config
	if err := toml.Unmarshal([]byte(rendered), &parsed); err != nil {
		return "", fmt.Errorf("sample config: %w", err)
	}
	return rendered, nil
}

func backendStanza(name string, opts SampleOptions) (string, error) {
	var b strings.Builder
	b.WriteString("[backend]\n# placeholder | http | command\n")
	fmt.Fprintf(&b, "name = %s\n", strconv.Quote(name))
	b.WriteString("# Optional per-kind overrides of name.\nimage_name = \"\"\naudio_name = \"\"\n")

	switch name {
	case BackendPlaceholder:
		b.WriteString("# Writes a 1x1 PNG per image and a short silent WAV per audio clip.\n")
	case BackendHTTP:
		baseURL := strings.TrimSpace(opts.BaseURL)
		if baseURL == "" {
			baseURL = sampleBaseURL
		}
		b.WriteString("# Requests go to <base_url>/images and <base_url>/audio.\n")
		fmt.Fprintf(&b, "base_url = %s\n", strconv.Quote(baseURL))
		b.WriteString("# Leave empty and export " + defaultAPIKeyEnv + " to keep the key out of this file.\n")
		b.WriteString("api_key = \"\"\nimage_model = \"\"\naudio_model = \"\"\n")
		fmt.Fprintf(&b, "timeout_seconds = %d\n", defaultBackendTimeoutSeconds)
	case BackendCommand:
		command := strings.TrimSpace(opts.Command)
		if command == "" {
			command = sampleCommand
		}
		b.WriteString("# The command must write the artifact to {output} and exit 0.\n")
		b.WriteString("# Args may use {output} {kind} {asset_id} {filename} {prompt} {text} {voice}.\n")
		fmt.Fprintf(&b, "command = %s\n", strconv.Quote(command))
		b.WriteString("args = [\"--kind\", \"{kind}\", \"--output\", \"{output}\"]\n")
	default:
		return "", fmt.Errorf("sample config: unsupported backend %q (expected placeholder, http, or command)", name)
	}

	fmt.Fprintf(&b, "image_width = %d\nimage_height = %d\n", defaultImageDimension, defaultImageDimension)
	fmt.Fprintf(&b, "default_style = %s\ndefault_voice = %s\n", strconv.Quote(defaultImageStyle), strconv.Quote(defaultVoicePreset))
	return b.String(), nil
}

// CreateSampleWith writes a sample configuration tailored by opts to path.
func CreateSampleWith(path string, opts SampleOptions) error {
	content, err := RenderSample(opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
