// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/regtet/image-processor/internal/archive"
	"github.com/regtet/image-processor/internal/browser"
	"github.com/regtet/image-processor/pkg/types"
)

// Step names used in status output and records.
const (
	StepConvert  = "convert"
	StepCompress = "compress"
)

// Subdirectories of the output folder.
const (
	convertedDir  = "converted"
	compressedDir = "compressed"
	stagingDir    = ".staging"
)

// ConvertStep builds the conversion step configuration from cfg: the page
// URL is derived from the target format.
func ConvertStep(cfg types.Config) types.StepConfig {
	return stepConfig(cfg, StepConvert,
		fmt.Sprintf(cfg.ConvertURLTemplate, cfg.Format),
		filepath.Join(cfg.OutputDir, convertedDir))
}

// CompressStep builds the compression step configuration from cfg.
func CompressStep(cfg types.Config) types.StepConfig {
	return stepConfig(cfg, StepCompress, cfg.CompressURL,
		filepath.Join(cfg.OutputDir, compressedDir))
}

func stepConfig(cfg types.Config, name, url, outDir string) types.StepConfig {
	return types.StepConfig{
		Name:            name,
		URL:             url,
		OutDir:          outDir,
		Selectors:       cfg.Selectors,
		NavigateTimeout: cfg.NavigateTimeout,
		SettleDelay:     cfg.SettleDelay,
		ProcessDelay:    cfg.ProcessDelay,
		ReadyTimeout:    cfg.ReadyTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		ItemTimeout:     cfg.ItemTimeout,
	}
}

// RunStep drives one upload/poll/download pass against a processing page:
// navigate, upload the batch, wait for the server to surface a download
// control, then take the download-all path (unpacking archives) or fall back
// to per-file buttons. It returns the paths of the downloaded results.
func RunStep(ctx context.Context, sess browser.Session, step types.StepConfig, files []string, w io.Writer) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	page, err := sess.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening %s page: %w", step.Name, err)
	}
	defer page.Close()

	fmt.Fprintf(w, "  uploading %d file(s) for %s\n", len(files), step.Name)
	if err := page.Navigate(ctx, step.URL, step.NavigateTimeout); err != nil {
		return nil, err
	}
	sleep(ctx, step.SettleDelay)

	if err := page.Upload(ctx, step.Selectors.FileInput, files); err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "  waiting for %s to finish\n", step.Name)
	sleep(ctx, step.ProcessDelay)
	if err := page.WaitVisible(ctx, step.Selectors.DownloadReady, step.ReadyTimeout); err != nil {
		return nil, err
	}
	sleep(ctx, step.SettleDelay)

	hasAll, err := page.Visible(ctx, step.Selectors.DownloadAll)
	if err != nil {
		return nil, err
	}

	if hasAll {
		path, err := page.DownloadClick(ctx, step.Selectors.DownloadAll, step.OutDir, step.DownloadTimeout)
		if err != nil {
			return nil, err
		}
		outputs, err := collectDownload(path, step.OutDir)
		if err != nil {
			return nil, err
		}
		for _, out := range outputs {
			fmt.Fprintf(w, "  downloaded: %s\n", filepath.Base(out))
		}
		return outputs, nil
	}

	// No download-all control: click each per-file button, skipping failures.
	outputs, itemErrs := page.DownloadEach(ctx, step.Selectors.DownloadItem, step.OutDir, step.ItemTimeout)
	for _, out := range outputs {
		fmt.Fprintf(w, "  downloaded: %s\n", filepath.Base(out))
	}
	for _, itemErr := range itemErrs {
		fmt.Fprintf(w, "  warning (%s): %v\n", Kind(itemErr), itemErr)
	}
	if len(outputs) == 0 && len(itemErrs) > 0 {
		return nil, fmt.Errorf("all %d per-file downloads failed", len(itemErrs))
	}
	return outputs, nil
}

// collectDownload resolves a completed download into result files: archives
// are unpacked into outDir and removed, single files pass through.
func collectDownload(path, outDir string) ([]string, error) {
	if strings.ToLower(filepath.Ext(path)) != ".zip" {
		return []string{path}, nil
	}
	extracted, err := archive.Unzip(path, outDir)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("removing archive %s: %w", path, err)
	}
	return extracted, nil
}

// sleep pauses for d or until ctx is done. Fixed settle delays mirror the
// page's rendering behavior and are configured per step; tests set them to 0.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
