package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeEngine renders through Chrome DevTools with chromedp.
type ChromeEngine struct {
	// Paths are explicit executables checked before the PATH lookup.
	Paths   []string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Render launches a browser, loads html, waits for the network to go idle and
// prints it. The browser is closed on every return path.
func (e *ChromeEngine) Render(ctx context.Context, html string, opts Options) ([]byte, error) {
	opts = opts.withDefaults(e.Timeout)
	logger := e.logger()

	execPath, err := FindExecutable(e.Paths)
	if err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pdf render aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: failed to launch %s: %v", ErrEngineUnavailable, execPath, err)
	}

	runCtx, cancelRun := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelRun()

	tracker := newRequestTracker()
	chromedp.ListenTarget(runCtx, tracker.observe)

	margin := mmToInches(opts.MarginMM)
	var buf []byte
	err = chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return tracker.waitIdle(ctx, networkQuietWindow)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(opts.Landscape).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(HeaderTemplate(opts.Title)).
				WithFooterTemplate(FooterTemplate(opts.Title)).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, classify(ctx, runCtx, err)
	}

	logger.Debug("pdf rendered",
		"engine", EngineChromedp,
		"bytes", len(buf),
		"landscape", opts.Landscape,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

func (e *ChromeEngine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// requestTracker counts in-flight network requests from DevTools events.
type requestTracker struct {
	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

func newRequestTracker() *requestTracker {
	return &requestTracker{
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
	}
}

func (t *requestTracker) observe(ev interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[ev.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, ev.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, ev.RequestID)
	default:
		return
	}
	t.lastActivity = time.Now()
}

// idleFor reports whether nothing is in flight and nothing has changed for quiet.
func (t *requestTracker) idleFor(quiet time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && now.Sub(t.lastActivity) >= quiet
}

func (t *requestTracker) waitIdle(ctx context.Context, quiet time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if t.idleFor(quiet, time.Now()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
