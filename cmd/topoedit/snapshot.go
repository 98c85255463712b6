package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/internal/presentation/tui"
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "Manage stored snapshots",
	Long:    `List, inspect and remove the snapshots held by the configured store.`,
}

var snapshotLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer b.close()

		keys, err := b.store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "No snapshots found.")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	},
}

var snapshotInspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Show a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		b, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer b.close()

		snap, err := b.store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load %q: %w", args[0], err)
		}
		if asJSON {
			data, err := snap.Marshal()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}
		ws, err := topoedit.Open(snap, workspaceOptions(topoedit.WithName(args[0]))...)
		if err != nil {
			return err
		}
		return tui.Render(cmd.OutOrStdout(), tui.Report(ws, args[0]))
	},
}

var snapshotRmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove one or more snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer b.close()

		failed := 0
		for _, key := range args {
			if err := b.store.Delete(cmd.Context(), key); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to remove %q: %v\n", key, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d snapshots not removed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotLsCmd, snapshotInspectCmd, snapshotRmCmd)
	snapshotInspectCmd.Flags().Bool("json", false, "Print the raw snapshot")
}
