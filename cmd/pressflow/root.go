package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pressflow",
	Short: "Pressflow is the editorial workflow engine behind PRESS AI",
	Long: `Pressflow drives an article through its editorial workflow: source upload,
type and title selection, content editing, image selection and finalization.
It persists drafts, streams sources to the analysis pipeline and polls for
suggested titles.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML configuration file")
}
