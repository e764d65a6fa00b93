package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/version"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "swarm version %s\n", version.Long())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the release number")
	rootCmd.Version = version.Get()
}
