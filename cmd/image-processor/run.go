// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/regtet/image-processor/internal/browser"
	"github.com/regtet/image-processor/internal/history"
	"github.com/regtet/image-processor/internal/pipeline"
	"github.com/regtet/image-processor/internal/report"
	"github.com/regtet/image-processor/internal/scan"
	"github.com/regtet/image-processor/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [folder]",
	Short: "Convert and compress all images in a folder",
	Long: `Run processes every supported image in the folder through the full
pipeline: each batch is uploaded to the conversion page, the converted files
are downloaded, uploaded to the compression page, and the compressed results
are downloaded. Outcomes are recorded in the history database and a per-run
YAML report.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("format", string(types.FormatWebP), "target format: webp, png, jpg, or avif")
	addProcessingFlags(runCmd)

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
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
	fmt.Printf("target format: %s\n", cfg.Format)
	fmt.Printf("output folder: %s\n", cfg.OutputDir)

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
	result := pipeline.Run(ctx, sess, cfg, images, os.Stdout)

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

// saveRun records the run in the history database and writes the YAML
// report. Both are best-effort: the processing itself already happened, so
// bookkeeping problems are warnings, not failures.
func saveRun(cfg types.Config, run types.Run, files []types.FileRecord) {
	store, err := history.Open(cfg.OutputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open history database: %v\n", err)
	} else {
		defer store.Close()
		if err := store.RecordRun(run); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
		} else {
			if err := store.RecordFiles(run.ID, files); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not record files: %v\n", err)
			}
			if err := store.FinishRun(run); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not finish run: %v\n", err)
			}
		}
	}

	rep := report.Report{
		Run: run,
		Params: report.Params{
			OutputDir: cfg.OutputDir,
			BatchSize: cfg.BatchSize,
			Headless:  cfg.Browser.Headless,
		},
		Files: files,
	}
	path, err := report.Write(cfg.OutputDir, rep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write report: %v\n", err)
		return
	}
	fmt.Printf("report written to %s\n", path)
}
