// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser drives the processing pages through a Chrome instance
// speaking the DevTools protocol. The pipeline depends only on the Session
// and Page interfaces; the chromedp-backed implementation lives in this
// package too, behind NewSession.
package browser

import (
	"context"
	"time"
)

// Session owns one browser process. Pages are opened and used strictly
// sequentially; a Session is not safe for concurrent use.
type Session interface {
	// NewPage opens a fresh tab with downloads staged into the session's
	// staging directory.
	NewPage(ctx context.Context) (Page, error)

	// Close shuts the browser down.
	Close() error
}

// Page exposes the handful of interactions the processing pages need.
// All blocking operations are bounded either by an explicit timeout
// parameter or by the page's operation timeout, and timeouts surface as
// errors satisfying errors.Is(err, context.DeadlineExceeded).
type Page interface {
	// Navigate loads url and waits for the page load event.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitVisible blocks until an element matching sel is visible.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error

	// Upload sets paths on the file input matching sel.
	Upload(ctx context.Context, sel string, paths []string) error

	// Visible reports whether an element matching sel currently exists and
	// is rendered. It does not wait.
	Visible(ctx context.Context, sel string) (bool, error)

	// DownloadClick clicks the element matching sel, waits for the
	// resulting download to complete, and moves the file into destDir under
	// its suggested filename. It returns the final path.
	DownloadClick(ctx context.Context, sel, destDir string, timeout time.Duration) (string, error)

	// DownloadEach clicks every element matching sel in turn, collecting
	// the completed downloads into destDir. Individual failures do not stop
	// the remaining clicks; they are returned alongside the successes.
	DownloadEach(ctx context.Context, sel, destDir string, itemTimeout time.Duration) ([]string, []error)

	// Close closes the tab.
	Close() error
}
