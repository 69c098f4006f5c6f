// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPage(t *testing.T) *chromePage {
	t.Helper()
	return &chromePage{
		stagingDir: t.TempDir(),
		names:      make(map[string]string),
	}
}

// stageFile plants a GUID-named file in the page's staging directory, as
// Chrome does under allow-and-name download behavior.
func stageFile(t *testing.T, p *chromePage, guid, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.stagingDir, guid), []byte(content), 0o644))
}

func TestAwaitDownloadRenamesToSuggestedName(t *testing.T) {
	p := newTestPage(t)
	dest := t.TempDir()

	ch := p.expectDownload()
	defer p.clearPending()

	stageFile(t, p, "guid-1", "payload")
	p.handleDownloadEvent(&cdpbrowser.EventDownloadWillBegin{
		GUID:              "guid-1",
		SuggestedFilename: "photo.webp",
	})
	p.handleDownloadEvent(&cdpbrowser.EventDownloadProgress{
		GUID:  "guid-1",
		State: cdpbrowser.DownloadProgressStateCompleted,
	})

	path, err := p.awaitDownload(context.Background(), ch, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "photo.webp"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// The staged GUID file is gone and the name mapping is released.
	_, statErr := os.Stat(filepath.Join(p.stagingDir, "guid-1"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, p.names)
}

func TestAwaitDownloadFallsBackToGUIDName(t *testing.T) {
	p := newTestPage(t)
	dest := t.TempDir()

	ch := p.expectDownload()
	defer p.clearPending()

	stageFile(t, p, "guid-2", "x")
	// No downloadWillBegin seen: there is no suggested filename to use.
	p.handleDownloadEvent(&cdpbrowser.EventDownloadProgress{
		GUID:  "guid-2",
		State: cdpbrowser.DownloadProgressStateCompleted,
	})

	path, err := p.awaitDownload(context.Background(), ch, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "guid-2"), path)
}

func TestAwaitDownloadCanceled(t *testing.T) {
	p := newTestPage(t)

	ch := p.expectDownload()
	defer p.clearPending()

	p.handleDownloadEvent(&cdpbrowser.EventDownloadWillBegin{
		GUID:              "guid-3",
		SuggestedFilename: "photo.webp",
	})
	p.handleDownloadEvent(&cdpbrowser.EventDownloadProgress{
		GUID:  "guid-3",
		State: cdpbrowser.DownloadProgressStateCanceled,
	})

	_, err := p.awaitDownload(context.Background(), ch, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
}

func TestAwaitDownloadIgnoresInProgressEvents(t *testing.T) {
	p := newTestPage(t)

	ch := p.expectDownload()
	defer p.clearPending()

	p.handleDownloadEvent(&cdpbrowser.EventDownloadWillBegin{
		GUID:              "guid-4",
		SuggestedFilename: "photo.webp",
	})
	p.handleDownloadEvent(&cdpbrowser.EventDownloadProgress{
		GUID:  "guid-4",
		State: cdpbrowser.DownloadProgressStateInProgress,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.awaitDownload(ctx, ch, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// The mapping survives until a terminal event arrives.
	p.mu.Lock()
	name := p.names["guid-4"]
	p.mu.Unlock()
	assert.Equal(t, "photo.webp", name)
}

func TestHandleDownloadEventWithoutPendingSlot(t *testing.T) {
	p := newTestPage(t)

	// No download armed: terminal events are dropped without blocking.
	p.handleDownloadEvent(&cdpbrowser.EventDownloadWillBegin{
		GUID:              "guid-5",
		SuggestedFilename: "photo.webp",
	})
	p.handleDownloadEvent(&cdpbrowser.EventDownloadProgress{
		GUID:  "guid-5",
		State: cdpbrowser.DownloadProgressStateCompleted,
	})

	assert.Empty(t, p.names)
}

func TestAwaitDownloadMissingStagedFile(t *testing.T) {
	p := newTestPage(t)

	ch := p.expectDownload()
	defer p.clearPending()

	// Completed event for a file that never landed in staging.
	p.handleDownloadEvent(&cdpbrowser.EventDownloadProgress{
		GUID:  "guid-6",
		State: cdpbrowser.DownloadProgressStateCompleted,
	})

	_, err := p.awaitDownload(context.Background(), ch, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moving download into place")
}
