package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"assetgen/internal/logs"
)

func newLogsCommand() *cobra.Command {
	var (
		lines    int
		follow   bool
		logPath  string
		assetID  string
		problems bool
	)

	cmd := &cobra.Command{
		Use:         "logs <output-dir>",
		Short:       "Show the generation log for an output directory",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(logPath)
			if path == "" {
				path = filepath.Join(args[0], DefaultLogName)
			}
			filter := logs.Filter{AssetID: strings.TrimSpace(assetID), Problems: problems}

			recent, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recent) == 0 && !follow {
				if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
					return fmt.Errorf("no generation log at %s", path)
				}
			}
			writeLines(out, recent...)
			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return logs.Follow(ctx, path, offset, logs.DefaultPoll, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&logPath, "log", "", "Log path when the run used --log")
	cmd.Flags().StringVar(&assetID, "asset", "", "Only lines for this asset ID")
	cmd.Flags().BoolVar(&problems, "problems", false, "Only warnings and errors")
	return cmd
}
