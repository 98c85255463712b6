package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/topo"
)

var checkCmd = &cobra.Command{
	Use:   "check <snapshot.json>",
	Short: "Check a snapshot for consistency",
	Long: `Loads a snapshot file, or the stored snapshot named by --key, and verifies the
structural invariants of the graph: back-references, loop closure, counts and
meshing consistency.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if (key == "") == (len(args) == 0) {
			return fmt.Errorf("give either a snapshot file or --key")
		}

		var snap *topo.Snapshot
		name := key
		if key != "" {
			b, err := openStore(cfg.Store)
			if err != nil {
				return err
			}
			defer b.close()
			if snap, err = b.store.Load(cmd.Context(), key); err != nil {
				return fmt.Errorf("failed to load %q: %w", key, err)
			}
		} else {
			name = args[0]
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if snap, err = topo.UnmarshalSnapshot(data); err != nil {
				return err
			}
		}

		ws, err := topoedit.Open(snap, workspaceOptions(topoedit.WithName(name))...)
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		if err := ws.Check(); err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		sizes := ws.Sizes()
		fmt.Fprintf(cmd.OutOrStdout(), "%s is consistent (%d blocks, %d cofaces, %d coedges, %d vertices)\n",
			name, sizes[domain.KindBlock], sizes[domain.KindCoFace], sizes[domain.KindCoEdge], sizes[domain.KindVertex])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("key", "", "Check the stored snapshot under this key")
}
