package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit/internal/presentation/graph"
	"github.com/aretw0/topoedit/pkg/topo"
)

var graphCmd = &cobra.Command{
	Use:   "graph <script.yaml>",
	Short: "Export the topology as a Mermaid diagram",
	Long: `Replays the script and prints a Mermaid flowchart (graph TD) of the resulting
containment hierarchy, highlighting what the last step created or modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")
		highlight, _ := cmd.Flags().GetBool("highlight")

		ws, _, last, err := replay(cmd.Context(), args[0], nil, nil)
		if err != nil {
			return err
		}
		opts := graph.Options{Depth: depth}
		if highlight && last != nil {
			opts.Overlay = &graph.Overlay{Created: last.Created, Modified: last.Modified}
		}
		return ws.View(func(g *topo.Graph) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, opts))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().IntP("depth", "d", graph.DefaultDepth, "Levels below blocks to draw (1 faces .. 5 vertices)")
	graphCmd.Flags().Bool("highlight", true, "Style the entities touched by the last step")
}
