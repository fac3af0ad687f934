package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pma/internal/phpast"
	"pma/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		if phpast.IsAvailable() {
			fmt.Fprintln(cmd.OutOrStdout(), "Structural parsing: enabled")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Structural parsing: disabled (built without cgo, removed functions use regex detection)")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
