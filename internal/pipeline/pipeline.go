// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs batches of images through the conversion and
// compression pages: each batch is fully converted, then its outputs are
// compressed, before the next batch begins. Failures are logged and skipped;
// there is no retry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/regtet/image-processor/internal/browser"
	"github.com/regtet/image-processor/internal/scan"
	"github.com/regtet/image-processor/pkg/types"
)

// Result holds the outcome of a pipeline run.
type Result struct {
	RunID      string
	Batches    int
	Converted  int
	Compressed int
	Failed     int
	Files      []types.FileRecord
}

// Outputs returns the total number of files produced across both steps.
func (r Result) Outputs() int {
	return r.Converted + r.Compressed
}

// HasFailures reports whether any file or batch failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// Kind labels an error per the tool's two-way taxonomy: "timeout" for
// deadline expiry, "error" for everything else.
func Kind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

// EnsureDirs eagerly creates the output tree (converted/, compressed/, and
// the download staging directory) before any browser work starts. It fills
// cfg.Browser.StagingDir with <OutputDir>/.staging when unset.
func EnsureDirs(cfg *types.Config) error {
	if cfg.Browser.StagingDir == "" {
		cfg.Browser.StagingDir = filepath.Join(cfg.OutputDir, stagingDir)
	}
	for _, dir := range []string{
		filepath.Join(cfg.OutputDir, convertedDir),
		filepath.Join(cfg.OutputDir, compressedDir),
		cfg.Browser.StagingDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// Run processes images through convert-then-compress, batch by batch. A
// failed step fails its whole batch; the run continues with the next batch.
func Run(ctx context.Context, sess browser.Session, cfg types.Config, images []string, w io.Writer) Result {
	result := Result{RunID: uuid.NewString()}

	batches := scan.Batches(images, cfg.BatchSize)
	result.Batches = len(batches)

	convert := ConvertStep(cfg)
	compress := CompressStep(cfg)

	for i, batch := range batches {
		fmt.Fprintf(w, "\nbatch %d/%d (%d file(s))\n", i+1, len(batches), len(batch))

		converted, err := RunStep(ctx, sess, convert, batch, w)
		if err != nil {
			fmt.Fprintf(w, "  %s failed (%s): %v\n", convert.Name, Kind(err), err)
			result.Failed += len(batch)
			result.Files = append(result.Files, failedRecords(convert.Name, batch, err)...)
			continue
		}
		result.Converted += len(converted)
		result.Files = append(result.Files, outputRecords(convert.Name, converted)...)

		if len(converted) == 0 {
			fmt.Fprintf(w, "  nothing converted, skipping compression\n")
			continue
		}

		compressed, err := RunStep(ctx, sess, compress, converted, w)
		if err != nil {
			fmt.Fprintf(w, "  %s failed (%s): %v\n", compress.Name, Kind(err), err)
			result.Failed += len(converted)
			result.Files = append(result.Files, failedRecords(compress.Name, converted, err)...)
			continue
		}
		result.Compressed += len(compressed)
		result.Files = append(result.Files, outputRecords(compress.Name, compressed)...)
	}

	fmt.Fprintf(w, "\nRun summary: %d converted, %d compressed, %d failed (%d batch(es))\n",
		result.Converted, result.Compressed, result.Failed, result.Batches)
	return result
}

// RunSingle processes images through one step only, batch by batch. Used by
// the convert and compress commands.
func RunSingle(ctx context.Context, sess browser.Session, step types.StepConfig, images []string, batchSize int, w io.Writer) Result {
	result := Result{RunID: uuid.NewString()}

	batches := scan.Batches(images, batchSize)
	result.Batches = len(batches)

	for i, batch := range batches {
		fmt.Fprintf(w, "\nbatch %d/%d (%d file(s))\n", i+1, len(batches), len(batch))

		outputs, err := RunStep(ctx, sess, step, batch, w)
		if err != nil {
			fmt.Fprintf(w, "  %s failed (%s): %v\n", step.Name, Kind(err), err)
			result.Failed += len(batch)
			result.Files = append(result.Files, failedRecords(step.Name, batch, err)...)
			continue
		}
		if step.Name == StepCompress {
			result.Compressed += len(outputs)
		} else {
			result.Converted += len(outputs)
		}
		result.Files = append(result.Files, outputRecords(step.Name, outputs)...)
	}

	fmt.Fprintf(w, "\nRun summary: %d converted, %d compressed, %d failed (%d batch(es))\n",
		result.Converted, result.Compressed, result.Failed, result.Batches)
	return result
}

// outputRecords builds done-records for downloaded files. The site does not
// map outputs back to the uploaded inputs, so only the output side is set.
func outputRecords(stepName string, outputs []string) []types.FileRecord {
	now := time.Now()
	recs := make([]types.FileRecord, 0, len(outputs))
	for _, out := range outputs {
		rec := types.FileRecord{
			Step:        stepName,
			OutputPath:  out,
			Status:      types.StatusDone,
			ProcessedAt: now,
		}
		if info, err := os.Stat(out); err == nil {
			rec.SizeBytes = info.Size()
		}
		recs = append(recs, rec)
	}
	return recs
}

// failedRecords builds failed-records for the inputs of a failed step.
func failedRecords(stepName string, inputs []string, err error) []types.FileRecord {
	now := time.Now()
	recs := make([]types.FileRecord, 0, len(inputs))
	for _, in := range inputs {
		recs = append(recs, types.FileRecord{
			Step:        stepName,
			InputPath:   in,
			Status:      types.StatusFailed,
			Error:       err.Error(),
			ProcessedAt: now,
		})
	}
	return recs
}
