// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/regtet/image-processor/internal/pipeline"
)

var compressCmd = &cobra.Command{
	Use:   "compress [folder]",
	Short: "Compress all images in a folder",
	Long: `Compress uploads the folder's images to the compression page in
batches and downloads the size-reduced files, without converting first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func init() {
	addProcessingFlags(compressCmd)

	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	return runSingleStep(cmd, args[0], pipeline.CompressStep)
}
