package main

import (
	"fmt"
	"strings"

	"github.com/Dev-Ruco/pressflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pressflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pressflow version %s\n", strings.TrimSpace(pressflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
