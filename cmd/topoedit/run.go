package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit"
)

var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Replay an edit script",
	Long: `Replays the steps of a YAML edit script on a new workspace, or on a stored
snapshot with --load, and optionally stores the result with --save or writes it
to a JSON file with --out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		load, _ := cmd.Flags().GetString("load")
		save, _ := cmd.Flags().GetString("save")
		out, _ := cmd.Flags().GetString("out")
		quiet, _ := cmd.Flags().GetBool("quiet")
		ctx := cmd.Context()

		var b *backend
		if load != "" || save != "" {
			var err error
			if b, err = openStore(cfg.Store); err != nil {
				return err
			}
			defer b.close()
		}

		var base *topoedit.Workspace
		if load != "" {
			snap, err := b.store.Load(ctx, load)
			if err != nil {
				return fmt.Errorf("failed to load %q: %w", load, err)
			}
			if base, err = topoedit.Open(snap, workspaceOptions(topoedit.WithName(load))...); err != nil {
				return err
			}
		}

		var progress io.Writer = cmd.OutOrStdout()
		if quiet {
			progress = nil
		}
		ws, _, _, err := replay(ctx, args[0], base, progress)
		if err != nil {
			return err
		}

		if save != "" {
			if err := b.store.Save(ctx, save, ws.Snapshot()); err != nil {
				return fmt.Errorf("failed to save %q: %w", save, err)
			}
			logger.Info("workspace saved", "key", save, "driver", cfg.Store.Driver)
		}
		if out != "" {
			data, err := ws.Snapshot().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("load", "", "Start from the snapshot stored under this key")
	runCmd.Flags().String("save", "", "Store the resulting snapshot under this key")
	runCmd.Flags().StringP("out", "o", "", "Write the resulting snapshot to this JSON file")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print one line per step")
}
