package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of image-processor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("image-processor %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
