package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"assetgen/internal/config"
	"assetgen/internal/workspec"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
		sample     config.SampleOptions
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter configuration for a generation backend",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSampleWith(target, sample); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s configuration to %s\n", initBackendName(sample), target)
			writeInitHints(out, sample, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	cmd.Flags().StringVar(&sample.Backend, "backend", config.BackendPlaceholder, "Backend stanza to write: placeholder, http or command")
	cmd.Flags().StringVar(&sample.BaseURL, "base-url", "", "Generation service URL for the http backend")
	cmd.Flags().StringVar(&sample.Command, "command", "", "Generator executable for the command backend")
	return cmd
}

func resolveInitTarget(targetPath string) (string, error) {
	target := strings.TrimSpace(targetPath)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return defaultPath, nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

func initBackendName(sample config.SampleOptions) string {
	if name := strings.ToLower(strings.TrimSpace(sample.Backend)); name != "" {
		return name
	}
	return config.BackendPlaceholder
}

func writeInitHints(out io.Writer, sample config.SampleOptions, target string) {
	switch initBackendName(sample) {
	case config.BackendHTTP:
		fmt.Fprintln(out, "Set [backend].api_key or export ASSETGEN_API_KEY, then check the service with:")
	case config.BackendCommand:
		fmt.Fprintln(out, "Make sure [backend].command is on PATH, then check it with:")
	default:
		fmt.Fprintln(out, "The placeholder backend needs no setup. Switch [backend].name to http or command for real assets. Check with:")
	}
	fmt.Fprintf(out, "  assetgen preflight --config %s\n", target)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Backend: %s\n", describeBackends(cfg))
			for _, kind := range workspec.Kinds {
				fmt.Fprintf(out, "  %s: %s\n", kindLabel(kind), backendTarget(cfg, cfg.BackendFor(string(kind))))
			}
			fmt.Fprintf(out, "Retries: %d attempts, backoff unit %s\n", cfg.Generation.MaxAttempts, cfg.BackoffUnit())
			fmt.Fprintf(out, "Run logs: %s (kept %d days)\n", cfg.LogDir(), cfg.Logging.RetentionDays)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// backendTarget says where a backend sends work.
func backendTarget(cfg *config.Config, name string) string {
	switch name {
	case config.BackendHTTP:
		return fmt.Sprintf("http %s", cfg.Backend.BaseURL)
	case config.BackendCommand:
		return fmt.Sprintf("command %s", cfg.Backend.Command)
	default:
		return name
	}
}
