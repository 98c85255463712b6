package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit/internal/presentation/tui"
)

var infoCmd = &cobra.Command{
	Use:   "info <script.yaml>",
	Short: "Summarize the topology produced by a script",
	Long:  `Replays the script and prints a markdown report, styled when stdout is a terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, sc, _, err := replay(cmd.Context(), args[0], nil, nil)
		if err != nil {
			return err
		}
		title := sc.Name
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		return tui.Render(cmd.OutOrStdout(), tui.Report(ws, title))
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
