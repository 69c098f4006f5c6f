// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/regtet/image-processor/pkg/types"
)

// Report is the on-disk record of one processing run: the parameters it ran
// with, every per-file outcome, and the summary counts. It duplicates the
// console output in a form later tooling can read back.
type Report struct {
	Run    types.Run          `yaml:"run"`
	Params Params             `yaml:"params"`
	Files  []types.FileRecord `yaml:"files"`
}

// Params stores the run parameters that produced the results.
type Params struct {
	OutputDir string `yaml:"output_dir"`
	BatchSize int    `yaml:"batch_size"`
	Headless  bool   `yaml:"headless"`
}

// Write marshals rep to dir/report-<runid>.yaml and returns the path.
func Write(dir string, rep Report) (string, error) {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	path := filepath.Join(dir, "report-"+rep.Run.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	return path, nil
}

// Read loads a report previously written by Write.
func Read(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("reading report %s: %w", path, err)
	}
	var rep Report
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return Report{}, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return rep, nil
}
