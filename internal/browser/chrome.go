// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/regtet/image-processor/pkg/types"
)

// opTimeout bounds page interactions that carry no explicit timeout
// parameter (uploads, visibility checks).
const opTimeout = 30 * time.Second

// chromeSession implements Session on top of a chromedp exec allocator.
type chromeSession struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	stagingDir  string
}

// NewSession launches Chrome and returns a Session staging downloads into
// cfg.StagingDir, which is created if missing. The browser starts eagerly so
// a missing Chrome binary fails here rather than mid-pipeline.
func NewSession(ctx context.Context, cfg types.BrowserConfig) (Session, error) {
	if cfg.StagingDir == "" {
		return nil, fmt.Errorf("browser session requires a staging directory")
	}
	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory %s: %w", cfg.StagingDir, err)
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, _ := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return &chromeSession{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		stagingDir:  cfg.StagingDir,
	}, nil
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)

	p := &chromePage{
		ctx:        tabCtx,
		cancel:     tabCancel,
		stagingDir: s.stagingDir,
		names:      make(map[string]string),
	}
	chromedp.ListenTarget(tabCtx, p.handleDownloadEvent)

	// Materialize the tab and route its downloads into the staging
	// directory, named by GUID so concurrent suggested names cannot collide.
	behavior := cdpbrowser.
		SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(s.stagingDir).
		WithEventsEnabled(true)
	if err := chromedp.Run(tabCtx, behavior); err != nil {
		tabCancel()
		return nil, fmt.Errorf("opening page: %w", err)
	}

	return p, nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.allocCancel()
	if err != nil {
		return fmt.Errorf("closing chrome: %w", err)
	}
	return nil
}

// staged describes one completed (or canceled) browser download.
type staged struct {
	guid     string
	name     string
	canceled bool
}

// chromePage implements Page for a single tab.
type chromePage struct {
	ctx        context.Context
	cancel     context.CancelFunc
	stagingDir string

	mu      sync.Mutex
	names   map[string]string // download GUID -> suggested filename
	pending chan staged
}

// run executes actions on the tab, bounded by timeout and by the caller's
// context. chromedp actions must run on the tab's own context tree, so the
// caller's cancellation is bridged in with context.AfterFunc.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tctx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for %q: %w", sel, err)
	}
	return nil
}

func (p *chromePage) Upload(ctx context.Context, sel string, paths []string) error {
	if err := p.run(ctx, opTimeout, chromedp.SetUploadFiles(sel, paths, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("uploading %d file(s) via %q: %w", len(paths), sel, err)
	}
	return nil
}

func (p *chromePage) Visible(ctx context.Context, sel string) (bool, error) {
	expr := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return !!el && el.offsetParent !== null; })()`,
		sel,
	)
	var visible bool
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(expr, &visible)); err != nil {
		return false, fmt.Errorf("checking visibility of %q: %w", sel, err)
	}
	return visible, nil
}

func (p *chromePage) DownloadClick(ctx context.Context, sel, destDir string, timeout time.Duration) (string, error) {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	ch := p.expectDownload()
	defer p.clearPending()

	if err := chromedp.Run(tctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("clicking %q: %w", sel, err)
	}
	return p.awaitDownload(tctx, ch, destDir)
}

func (p *chromePage) DownloadEach(ctx context.Context, sel, destDir string, itemTimeout time.Duration) ([]string, []error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, opTimeout, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, []error{fmt.Errorf("finding download buttons %q: %w", sel, err)}
	}

	var (
		paths []string
		errs  []error
	)
	for i, node := range nodes {
		path, err := p.downloadNode(ctx, node, destDir, itemTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("download %d/%d: %w", i+1, len(nodes), err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errs
}

func (p *chromePage) downloadNode(ctx context.Context, node *cdp.Node, destDir string, timeout time.Duration) (string, error) {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	ch := p.expectDownload()
	defer p.clearPending()

	if err := chromedp.Run(tctx, chromedp.MouseClickNode(node)); err != nil {
		return "", fmt.Errorf("clicking download button: %w", err)
	}
	return p.awaitDownload(tctx, ch, destDir)
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

func (p *chromePage) handleDownloadEvent(ev interface{}) {
	switch e := ev.(type) {
	case *cdpbrowser.EventDownloadWillBegin:
		p.mu.Lock()
		p.names[e.GUID] = e.SuggestedFilename
		p.mu.Unlock()

	case *cdpbrowser.EventDownloadProgress:
		if e.State != cdpbrowser.DownloadProgressStateCompleted &&
			e.State != cdpbrowser.DownloadProgressStateCanceled {
			return
		}
		p.mu.Lock()
		name := p.names[e.GUID]
		delete(p.names, e.GUID)
		ch := p.pending
		p.mu.Unlock()

		if ch == nil {
			return
		}
		s := staged{
			guid:     e.GUID,
			name:     name,
			canceled: e.State == cdpbrowser.DownloadProgressStateCanceled,
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// expectDownload arms the page for exactly one download. Pages are used
// sequentially, so a single pending slot suffices.
func (p *chromePage) expectDownload() chan staged {
	ch := make(chan staged, 1)
	p.mu.Lock()
	p.pending = ch
	p.mu.Unlock()
	return ch
}

func (p *chromePage) clearPending() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

// awaitDownload waits for the armed download to complete, then moves the
// GUID-named staged file into destDir under its suggested filename.
func (p *chromePage) awaitDownload(ctx context.Context, ch chan staged, destDir string) (string, error) {
	select {
	case s := <-ch:
		if s.canceled {
			return "", fmt.Errorf("browser canceled download %s", s.guid)
		}
		name := s.name
		if name == "" {
			name = s.guid
		}
		src := filepath.Join(p.stagingDir, s.guid)
		dest := filepath.Join(destDir, name)
		if err := os.Rename(src, dest); err != nil {
			return "", fmt.Errorf("moving download into place: %w", err)
		}
		return dest, nil

	case <-ctx.Done():
		return "", ctx.Err()
	}
}
