package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"assetgen/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("run history is disabled ([history] enabled = false)")
			}
			if outputDir != "" {
				abs, err := filepath.Abs(outputDir)
				if err != nil {
					return fmt.Errorf("resolve output dir: %w", err)
				}
				outputDir = abs
			}

			store, err := history.OpenFromConfig(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), outputDir, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(runs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Only show runs for this output directory")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func renderHistoryTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			run.State,
			run.Backend,
			strconv.Itoa(run.Planned),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Skipped),
			run.OutputDir,
		})
	}
	return renderTable(tableSpec{
		Headers: []string{"Run", "Started", "Took", "State", "Backend", "Planned", "OK", "Failed", "Skipped", "Output"},
		Rows:    rows,
		Aligns: []columnAlignment{
			alignLeft, alignLeft, alignRight, alignLeft, alignLeft,
			alignRight, alignRight, alignRight, alignRight, alignLeft,
		},
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
