package main

import (
	"github.com/spf13/cobra"

	"github.com/ducminhle1904/trend-breakout-bot/cmd/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		common.PrintVersion(cmd.OutOrStdout(), rootCmd.Name())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
