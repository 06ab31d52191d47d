package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"assetgen/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories and backends before a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if outputDir != "" {
				if outputDir, err = filepath.Abs(outputDir); err != nil {
					return fmt.Errorf("resolve output dir: %w", err)
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, outputDir)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			writeLines(out, renderSectionHeader("Preflight", colorize)...)
			lines := []statusLine{infoLine("History", historyDetail(cfg.History.Enabled, cfg.History.Path))}
			for _, r := range results {
				lines = append(lines, preflightStatusLine(r))
			}
			writeLines(out, renderStatusLines(lines, colorize)...)
			if err := preflight.Failed(results); err != nil {
				return fmt.Errorf("preflight failed:\n%w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory to check")
	return cmd
}

func historyDetail(enabled bool, path string) string {
	return fmt.Sprintf("enabled=%s %s", yesNo(enabled), path)
}
