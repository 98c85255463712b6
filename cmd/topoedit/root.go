package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit/internal/config"
	"github.com/aretw0/topoedit/internal/logging"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "topoedit",
	Short: "topoedit edits block-structured CAD topologies",
	Long: `topoedit replays YAML edit scripts (create, split, fuse and mesh blocks) on a
topology workspace, prints the result as a Mermaid diagram or a markdown report,
and serves shared workspaces over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel, _ = cmd.Flags().GetString("log-level")
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		cfg = loaded
		logger = logging.New(cfg.Level())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (TOPOEDIT_* variables override it)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
}
