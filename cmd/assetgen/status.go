package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"assetgen/internal/manifest"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "status <output-dir>",
		Short:       "Show the manifest summary and failed assets for an output directory",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifest.Path(args[0])
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no manifest at %s; nothing has run against this directory", path)
			}
			m, err := manifest.LoadIfExists(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			writeLines(out, renderSectionHeader("Manifest", colorize)...)
			writeLines(out, renderStatusLines(manifestStatusLines(path, m), colorize)...)
			writeLines(out, "")

			summary := m.Summary()
			failures := failedEntries(m.Latest())
			writeRunReport(out, summary, failures)
			return nil
		},
	}
}
