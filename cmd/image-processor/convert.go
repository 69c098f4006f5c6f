// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/regtet/image-processor/internal/browser"
	"github.com/regtet/image-processor/internal/pipeline"
	"github.com/regtet/image-processor/internal/scan"
	"github.com/regtet/image-processor/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [folder]",
	Short: "Convert all images in a folder to the target format",
	Long: `Convert uploads the folder's images to the format-conversion page in
batches and downloads the converted files, without the compression step.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("format", string(types.FormatWebP), "target format: webp, png, jpg, or avif")
	addProcessingFlags(convertCmd)

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	return runSingleStep(cmd, args[0], pipeline.ConvertStep)
}

// runSingleStep shares the single-step flow between convert and compress.
func runSingleStep(cmd *cobra.Command, folder string, step func(types.Config) types.StepConfig) error {
	cfg, err := buildConfig(cmd, folder)
	if err != nil {
		return err
	}

	images, err := scan.Images(cfg.InputDir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Printf("no images found in %s\n", cfg.InputDir)
		return nil
	}
	fmt.Printf("found %d image(s) in %s\n", len(images), cfg.InputDir)

	if err := pipeline.EnsureDirs(&cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := browser.NewSession(ctx, cfg.Browser)
	if err != nil {
		return err
	}
	defer sess.Close()

	startedAt := time.Now()
	result := pipeline.RunSingle(ctx, sess, step(cfg), images, cfg.BatchSize, os.Stdout)

	run := types.Run{
		ID:         result.RunID,
		InputDir:   cfg.InputDir,
		Format:     cfg.Format,
		Converted:  result.Converted,
		Compressed: result.Compressed,
		Failed:     result.Failed,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	saveRun(cfg, run, result.Files)

	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed processing", result.Failed)
	}
	return nil
}
