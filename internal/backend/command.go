package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"assetgen/internal/deps"
	"assetgen/internal/workspec"
)

// CommandConfig describes an external generator executable.
//
// Args may reference {output}, {kind}, {asset_id}, {filename}, {prompt},
// {text} and {voice}. The request payload is also written to stdin as JSON.
// The process must write the artifact to {output} and exit 0.
type CommandConfig struct {
	Command      string
	Args         []string
	DefaultStyle string
	DefaultVoice string
}

// Command runs one external process per request.
type Command struct {
	cfg CommandConfig

	once       sync.Once
	initErr    error
	binary     string
	scratchDir string
}

// NewCommand constructs the backend. The binary is resolved on first use.
func NewCommand(cfg CommandConfig) *Command {
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = DefaultStyle
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = DefaultVoice
	}
	return &Command{cfg: cfg}
}

// Requirement describes the executable for dependency reports.
func (c *Command) Requirement() deps.Requirement {
	return deps.Requirement{
		Name:        "Generator",
		Command:     c.cfg.Command,
		Description: "External asset generator invoked per work item",
	}
}

func (c *Command) init() error {
	c.once.Do(func() {
		binary, err := deps.Resolve(c.Requirement())
		if err != nil {
			c.initErr = fmt.Errorf("command backend: %w", err)
			return
		}
		dir, err := os.MkdirTemp("", "assetgen-")
		if err != nil {
			c.initErr = fmt.Errorf("command backend: scratch dir: %w", err)
			return
		}
		c.binary = binary
		c.scratchDir = dir
	})
	return c.initErr
}

func (c *Command) Generate(ctx context.Context, req Request) (Artifact, error) {
	if err := c.init(); err != nil {
		return Artifact{}, err
	}
	output := filepath.Join(c.scratchDir, fmt.Sprintf("%s-%d-%s", sanitize(req.AssetID), req.Attempt, sanitize(req.Filename)))
	_ = os.Remove(output)

	vars := map[string]string{
		"{output}":   output,
		"{kind}":     string(req.Kind),
		"{asset_id}": req.AssetID,
		"{filename}": req.Filename,
	}
	switch req.Kind {
	case workspec.KindImage:
		vars["{prompt}"] = ImagePrompt(req.Value("description", ""), req.Value("style", c.cfg.DefaultStyle))
	case workspec.KindAudio:
		vars["{text}"] = AudioText(req)
		vars["{voice}"] = req.Value("voice", c.cfg.DefaultVoice)
	}
	args := make([]string, len(c.cfg.Args))
	for i, arg := range c.cfg.Args {
		for key, value := range vars {
			arg = strings.ReplaceAll(arg, key, value)
		}
		args[i] = arg
	}

	stdin, err := json.Marshal(map[string]any{
		"asset_id": req.AssetID,
		"kind":     req.Kind,
		"filename": req.Filename,
		"output":   output,
		"payload":  req.Payload,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("command backend: encode stdin: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(output)
		if msg := lastLine(stderr.String()); msg != "" {
			return Artifact{}, fmt.Errorf("%s: %w", msg, err)
		}
		return Artifact{}, fmt.Errorf("command backend: %w", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return Artifact{}, fmt.Errorf("command backend: generator produced no output: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(output)
		return Artifact{}, errors.New("command backend: generator produced an empty file")
	}
	return Artifact{Path: output}, nil
}

// Close removes the scratch directory.
func (c *Command) Close() error {
	if c.scratchDir == "" {
		return nil
	}
	return os.RemoveAll(c.scratchDir)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
