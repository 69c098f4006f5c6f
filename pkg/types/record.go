// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FileStatus indicates the outcome of processing one file in one step.
type FileStatus string

const (
	StatusDone    FileStatus = "done"
	StatusFailed  FileStatus = "failed"
	StatusSkipped FileStatus = "skipped"
)

// FileRecord captures the outcome of one file passing through one step.
// Records feed both the history database and the per-run report.
type FileRecord struct {
	// Step is the step name ("convert" or "compress").
	Step string `json:"step" yaml:"step"`

	// InputPath is the local file uploaded to the page. For archive
	// downloads, where the site does not map outputs to inputs, this is
	// empty and only OutputPath is set.
	InputPath string `json:"input_path,omitempty" yaml:"input_path,omitempty"`

	// OutputPath is the downloaded result file, empty on failure.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// SizeBytes is the size of the output file, 0 on failure.
	SizeBytes int64 `json:"size_bytes" yaml:"size_bytes"`

	// Status is the per-file outcome.
	Status FileStatus `json:"status" yaml:"status"`

	// Error holds the failure message when Status is failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// ProcessedAt is when the record was produced.
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// Run summarizes one pipeline invocation.
type Run struct {
	// ID is the run identifier (a UUID).
	ID string `json:"id" yaml:"id"`

	// InputDir is the folder the run scanned.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// Format is the target conversion format.
	Format ImageFormat `json:"format" yaml:"format"`

	// Converted and Compressed count output files per step; Failed counts
	// files or batches that produced no output.
	Converted  int `json:"converted" yaml:"converted"`
	Compressed int `json:"compressed" yaml:"compressed"`
	Failed     int `json:"failed" yaml:"failed"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}
