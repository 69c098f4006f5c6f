// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regtet/image-processor/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "List the images a run would process, without opening a browser",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().Int("batch-size", 10, "images uploaded per page visit")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	images, err := scan.Images(args[0])
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Printf("no images found in %s\n", args[0])
		return nil
	}

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	batches := scan.Batches(images, batchSize)

	fmt.Printf("%d image(s) in %s (%d batch(es) of up to %d):\n", len(images), args[0], len(batches), batchSize)
	for i, batch := range batches {
		fmt.Printf("batch %d:\n", i+1)
		for _, path := range batch {
			fmt.Printf("  %s\n", path)
		}
	}
	return nil
}
