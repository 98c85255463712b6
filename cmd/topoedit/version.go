package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of topoedit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "topoedit version %s\n", strings.TrimSpace(topoedit.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
