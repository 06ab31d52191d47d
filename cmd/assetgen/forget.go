package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"assetgen/internal/manifest"
	"assetgen/internal/runlock"
)

func newForgetCommand() *cobra.Command {
	var deleteFiles bool

	cmd := &cobra.Command{
		Use:   "forget <output-dir> <asset-id>...",
		Short: "Drop assets from the manifest so the next run regenerates them",
		Long: "Removes every manifest entry for the named assets. The next resumed run " +
			"treats them as never generated. With --delete-files the generated artifacts are removed too.",
		Args:        cobra.MinimumNArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir, ids := args[0], args[1:]
			path := manifest.Path(outputDir)
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no manifest at %s", path)
			}

			lock, err := runlock.Acquire(outputDir)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			m, err := manifest.LoadIfExists(path)
			if err != nil {
				return err
			}
			removed := m.Forget(ids...)
			if len(removed) == 0 {
				return fmt.Errorf("none of %v are in the manifest", ids)
			}
			m.SetSummary(manifest.Summarize(m.Latest()))

			if m.Partial() {
				err = m.Checkpoint(path)
			} else {
				err = m.Finalize(path)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range removed {
				line := fmt.Sprintf("Forgot %s (%s, %s)", entry.AssetID, entry.Type, entry.Status)
				if deleteFiles && entry.Filepath != "" {
					switch err := os.Remove(entry.Filepath); {
					case err == nil:
						line += "; deleted " + entry.Filepath
					case errors.Is(err, fs.ErrNotExist):
						line += "; file already absent"
					default:
						return fmt.Errorf("delete %s: %w", entry.Filepath, err)
					}
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, "Run the same generation command again to regenerate them.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "Also delete generated artifacts")
	return cmd
}
