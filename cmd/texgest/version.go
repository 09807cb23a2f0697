package main

import (
	"fmt"

	"github.com/dgallion1/texgest/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "texgest %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
