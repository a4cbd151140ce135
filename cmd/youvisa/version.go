package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/youvisa"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of youvisa",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "youvisa version %s\n", strings.TrimSpace(youvisa.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
