// Package pdf prints self-contained HTML to A4 PDF with a headless browser.
// Every Render launches its own browser and releases it before returning.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrEngineUnavailable means no browser could be found or launched.
	ErrEngineUnavailable = errors.New("pdf engine unavailable")
	// ErrRenderTimeout means the page did not settle within the timeout.
	ErrRenderTimeout = errors.New("pdf render timed out")
)

// Page margins in millimetres.
const (
	PreviewMargin = 10.0
	ReportMargin  = 15.0
)

// DefaultTimeout bounds a single render when neither the engine nor the
// options set one.
const DefaultTimeout = 60 * time.Second

// DefaultTitle is printed in the page header.
const DefaultTitle = "InterviewAce"

// A4 in inches.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
)

// networkQuietWindow is how long the page must have zero in-flight requests.
const networkQuietWindow = 500 * time.Millisecond

// Engine names accepted by New.
const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Options control a single render.
type Options struct {
	Landscape bool
	MarginMM  float64
	Title     string
	Timeout   time.Duration
}

// Engine converts HTML to PDF bytes.
type Engine interface {
	Render(ctx context.Context, html string, opts Options) ([]byte, error)
}

// executableNames are looked up on PATH when no explicit path is configured.
var executableNames = []string{
	"chromium",
	"chromium-browser",
	"google-chrome-stable",
	"google-chrome",
}

// New returns the engine called name. paths are explicit browser executables
// in priority order.
func New(name string, paths []string, timeout time.Duration, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineChromedp:
		return &ChromeEngine{Paths: paths, Timeout: timeout, Logger: logger}, nil
	case EnginePlaywright:
		return &PlaywrightEngine{Paths: paths, Timeout: timeout, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", name)
	}
}

// FindExecutable returns the first configured path that exists, falling back
// to a PATH lookup of the common Chromium and Chrome binary names.
func FindExecutable(paths []string) (string, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	for _, name := range executableNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no browser executable found (checked %d configured paths and %s)",
		ErrEngineUnavailable, len(paths), strings.Join(executableNames, ", "))
}

func (o Options) withDefaults(engineTimeout time.Duration) Options {
	if o.MarginMM <= 0 {
		o.MarginMM = ReportMargin
	}
	if strings.TrimSpace(o.Title) == "" {
		o.Title = DefaultTitle
	}
	if o.Timeout <= 0 {
		o.Timeout = engineTimeout
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// HeaderTemplate is the print header: the product name.
func HeaderTemplate(title string) string {
	return `<div style="font-size:8px;width:100%;padding:0 10mm;color:#64748b;">` +
		`<span>` + html.EscapeString(title) + `</span></div>`
}

// FooterTemplate is the print footer: "Page X of Y". The browser fills the
// pageNumber and totalPages spans.
func FooterTemplate(title string) string {
	return `<div style="font-size:8px;width:100%;padding:0 10mm;color:#64748b;display:flex;justify-content:space-between;">` +
		`<span>` + html.EscapeString(title) + `</span>` +
		`<span>Page <span class="pageNumber"></span> of <span class="totalPages"></span></span></div>`
}

// classify maps a render failure onto the package sentinels. Caller
// cancellation is returned as is.
func classify(parent, run context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEngineUnavailable) || errors.Is(err, ErrRenderTimeout) {
		return err
	}
	if parent.Err() != nil {
		return fmt.Errorf("pdf render aborted: %w", parent.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(run.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRenderTimeout, err)
	}
	return fmt.Errorf("pdf render failed: %w", err)
}
