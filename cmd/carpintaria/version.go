package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/carpintaria"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of carpintaria",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "carpintaria version %s\n", strings.TrimSpace(carpintaria.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
