// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regtet/image-processor/internal/browser"
	"github.com/regtet/image-processor/pkg/types"
)

// fakePage scripts one page visit. Download callbacks create the result
// files themselves so the step's filesystem handling is exercised for real.
type fakePage struct {
	navigateErr error
	uploadErr   error
	waitErr     error
	visibleErr  error
	hasAll      bool

	onDownloadAll  func(destDir string) (string, error)
	onDownloadEach func(destDir string) ([]string, []error)

	gotURL    string
	gotUpload []string
	closed    bool
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.gotURL = url
	return p.navigateErr
}

func (p *fakePage) WaitVisible(_ context.Context, _ string, _ time.Duration) error {
	return p.waitErr
}

func (p *fakePage) Upload(_ context.Context, _ string, paths []string) error {
	p.gotUpload = paths
	return p.uploadErr
}

func (p *fakePage) Visible(_ context.Context, _ string) (bool, error) {
	return p.hasAll, p.visibleErr
}

func (p *fakePage) DownloadClick(_ context.Context, _, destDir string, _ time.Duration) (string, error) {
	return p.onDownloadAll(destDir)
}

func (p *fakePage) DownloadEach(_ context.Context, _, destDir string, _ time.Duration) ([]string, []error) {
	return p.onDownloadEach(destDir)
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

// fakeSession hands out scripted pages in order.
type fakeSession struct {
	pages []*fakePage
	idx   int
}

func (s *fakeSession) NewPage(context.Context) (browser.Page, error) {
	if s.idx >= len(s.pages) {
		return nil, fmt.Errorf("no page scripted for visit %d", s.idx+1)
	}
	p := s.pages[s.idx]
	s.idx++
	return p, nil
}

func (s *fakeSession) Close() error { return nil }

// writeResult creates a fake downloaded file and returns its path.
func writeResult(t *testing.T, destDir, name, content string) string {
	t.Helper()
	path := filepath.Join(destDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeResultZip creates a fake downloaded archive containing the given entries.
func writeResultZip(t *testing.T, destDir, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(destDir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for entry, content := range entries {
		ew, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = ew.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

// testStep builds a step config with zeroed delays pointing at dir.
func testStep(name, dir string) types.StepConfig {
	return types.StepConfig{
		Name:      name,
		URL:       "https://example.com/" + name,
		OutDir:    dir,
		Selectors: types.DefaultSelectors(),
	}
}

func TestRunStepDownloadAllSingleFile(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{
		hasAll: true,
		onDownloadAll: func(destDir string) (string, error) {
			return writeResult(t, destDir, "photo.webp", "converted"), nil
		},
	}
	sess := &fakeSession{pages: []*fakePage{page}}

	var buf bytes.Buffer
	outputs, err := RunStep(context.Background(), sess, testStep(StepConvert, dir), []string{"in/photo.png"}, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "photo.webp")}, outputs)
	assert.Equal(t, "https://example.com/convert", page.gotURL)
	assert.Equal(t, []string{"in/photo.png"}, page.gotUpload)
	assert.True(t, page.closed)
	assert.Contains(t, buf.String(), "downloaded: photo.webp")
}

func TestRunStepDownloadAllArchive(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{
		hasAll: true,
		onDownloadAll: func(destDir string) (string, error) {
			return writeResultZip(t, destDir, "results.zip", map[string]string{
				"a.webp": "aaa",
				"b.webp": "bbb",
			}), nil
		},
	}
	sess := &fakeSession{pages: []*fakePage{page}}

	var buf bytes.Buffer
	outputs, err := RunStep(context.Background(), sess, testStep(StepConvert, dir), []string{"x.png", "y.png"}, &buf)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "a.webp"),
		filepath.Join(dir, "b.webp"),
	}
	assert.Equal(t, want, outputs)

	// The archive itself is removed after extraction.
	_, statErr := os.Stat(filepath.Join(dir, "results.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunStepPerItemFallback(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{
		hasAll: false,
		onDownloadEach: func(destDir string) ([]string, []error) {
			paths := []string{
				writeResult(t, destDir, "a.webp", "aaa"),
				writeResult(t, destDir, "b.webp", "bbb"),
			}
			return paths, []error{fmt.Errorf("download 3/3: %w", context.DeadlineExceeded)}
		},
	}
	sess := &fakeSession{pages: []*fakePage{page}}

	var buf bytes.Buffer
	outputs, err := RunStep(context.Background(), sess, testStep(StepConvert, dir), []string{"x.png"}, &buf)
	require.NoError(t, err)

	assert.Len(t, outputs, 2)
	assert.Contains(t, buf.String(), "warning (timeout): download 3/3")
}

func TestRunStepPerItemAllFailed(t *testing.T) {
	page := &fakePage{
		hasAll: false,
		onDownloadEach: func(string) ([]string, []error) {
			return nil, []error{errors.New("boom"), errors.New("boom")}
		},
	}
	sess := &fakeSession{pages: []*fakePage{page}}

	_, err := RunStep(context.Background(), sess, testStep(StepConvert, t.TempDir()), []string{"x.png"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 per-file downloads failed")
}

func TestRunStepReadyTimeout(t *testing.T) {
	page := &fakePage{
		waitErr: fmt.Errorf("waiting for download controls: %w", context.DeadlineExceeded),
	}
	sess := &fakeSession{pages: []*fakePage{page}}

	_, err := RunStep(context.Background(), sess, testStep(StepConvert, t.TempDir()), []string{"x.png"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, "timeout", Kind(err))
	assert.True(t, page.closed)
}

func TestRunStepEmptyBatch(t *testing.T) {
	sess := &fakeSession{}
	outputs, err := RunStep(context.Background(), sess, testStep(StepConvert, t.TempDir()), nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, outputs)
	assert.Zero(t, sess.idx, "no page should be opened for an empty batch")
}

func testConfig(t *testing.T) types.Config {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.SettleDelay = 0
	cfg.ProcessDelay = 0
	require.NoError(t, EnsureDirs(&cfg))
	return cfg
}

func TestRunChainsCompressAfterConvert(t *testing.T) {
	cfg := testConfig(t)

	convertPage := &fakePage{
		hasAll: true,
		onDownloadAll: func(destDir string) (string, error) {
			return writeResultZip(t, destDir, "converted.zip", map[string]string{
				"a.webp": "aaa",
				"b.webp": "bbb",
			}), nil
		},
	}
	var compressGot []string
	compressPage := &fakePage{
		hasAll: true,
		onDownloadAll: func(destDir string) (string, error) {
			return writeResultZip(t, destDir, "compressed.zip", map[string]string{
				"a.webp": "a", "b.webp": "b",
			}), nil
		},
	}
	sess := &fakeSession{pages: []*fakePage{convertPage, compressPage}}

	var buf bytes.Buffer
	result := Run(context.Background(), sess, cfg, []string{"x.png", "y.png"}, &buf)
	compressGot = compressPage.gotUpload

	assert.Equal(t, 1, result.Batches)
	assert.Equal(t, 2, result.Converted)
	assert.Equal(t, 2, result.Compressed)
	assert.Zero(t, result.Failed)
	assert.False(t, result.HasFailures())
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Files, 4)

	// The compression step receives the conversion outputs, not the originals.
	want := []string{
		filepath.Join(cfg.OutputDir, "converted", "a.webp"),
		filepath.Join(cfg.OutputDir, "converted", "b.webp"),
	}
	assert.Equal(t, want, compressGot)

	assert.Contains(t, buf.String(), "Run summary: 2 converted, 2 compressed, 0 failed")
}

func TestRunConvertFailureSkipsCompress(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 1

	failPage := &fakePage{
		waitErr: fmt.Errorf("waiting: %w", context.DeadlineExceeded),
	}
	okConvert := &fakePage{
		hasAll: true,
		onDownloadAll: func(destDir string) (string, error) {
			return writeResult(t, destDir, "y.webp", "yyy"), nil
		},
	}
	okCompress := &fakePage{
		hasAll: true,
		onDownloadAll: func(destDir string) (string, error) {
			return writeResult(t, destDir, "y-min.webp", "y"), nil
		},
	}
	sess := &fakeSession{pages: []*fakePage{failPage, okConvert, okCompress}}

	var buf bytes.Buffer
	result := Run(context.Background(), sess, cfg, []string{"x.png", "y.png"}, &buf)

	assert.Equal(t, 2, result.Batches)
	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 1, result.Compressed)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, result.HasFailures())
	assert.Contains(t, buf.String(), "convert failed (timeout)")

	var failed []types.FileRecord
	for _, rec := range result.Files {
		if rec.Status == types.StatusFailed {
			failed = append(failed, rec)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, StepConvert, failed[0].Step)
	assert.Equal(t, "x.png", failed[0].InputPath)
	assert.NotEmpty(t, failed[0].Error)
}

func TestRunEmptyConversionSkipsCompress(t *testing.T) {
	cfg := testConfig(t)

	page := &fakePage{
		hasAll: false,
		onDownloadEach: func(string) ([]string, []error) {
			return nil, nil
		},
	}
	sess := &fakeSession{pages: []*fakePage{page}}

	var buf bytes.Buffer
	result := Run(context.Background(), sess, cfg, []string{"x.png"}, &buf)

	assert.Zero(t, result.Converted)
	assert.Zero(t, result.Compressed)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 1, sess.idx, "compression page should not be opened")
	assert.Contains(t, buf.String(), "nothing converted")
}

func TestRunSingle(t *testing.T) {
	cfg := testConfig(t)

	page := &fakePage{
		hasAll: true,
		onDownloadAll: func(destDir string) (string, error) {
			return writeResult(t, destDir, "x-min.png", "x"), nil
		},
	}
	sess := &fakeSession{pages: []*fakePage{page}}

	var buf bytes.Buffer
	result := RunSingle(context.Background(), sess, CompressStep(cfg), []string{"x.png"}, cfg.BatchSize, &buf)

	assert.Zero(t, result.Converted)
	assert.Equal(t, 1, result.Compressed)
	assert.Zero(t, result.Failed)
}

func TestEnsureDirs(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "processed")

	require.NoError(t, EnsureDirs(&cfg))

	assert.Equal(t, filepath.Join(cfg.OutputDir, ".staging"), cfg.Browser.StagingDir)
	for _, dir := range []string{
		filepath.Join(cfg.OutputDir, "converted"),
		filepath.Join(cfg.OutputDir, "compressed"),
		cfg.Browser.StagingDir,
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "timeout", Kind(context.DeadlineExceeded))
	assert.Equal(t, "timeout", Kind(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Equal(t, "error", Kind(errors.New("selector missing")))
}

func TestConvertStepURL(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.OutputDir = "/tmp/out"
	cfg.Format = types.FormatAVIF

	step := ConvertStep(cfg)
	assert.Equal(t, "https://to.imagestool.com/to-avif", step.URL)
	assert.Equal(t, filepath.Join("/tmp/out", "converted"), step.OutDir)

	step = CompressStep(cfg)
	assert.Equal(t, "https://imagestool.com/compress-image", step.URL)
	assert.Equal(t, filepath.Join("/tmp/out", "compressed"), step.OutDir)
}
