package pdf

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindExecutablePrefersConfiguredPaths(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "chrome-a")
	second := filepath.Join(dir, "chrome-b")
	require.NoError(t, os.WriteFile(second, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(first, []byte("#!/bin/sh\n"), 0o755))

	got, err := FindExecutable([]string{"", filepath.Join(dir, "missing"), first, second})
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestFindExecutableSkipsDirectories(t *testing.T) {
	t.Setenv("PATH", "")
	_, err := FindExecutable([]string{t.TempDir()})
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestFindExecutableFallsBackToPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "chromium-browser")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	got, err := FindExecutable(nil)
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}

func TestRenderWithoutBrowserIsUnavailable(t *testing.T) {
	t.Setenv("PATH", "")
	engines := map[string]Engine{
		"chromedp": &ChromeEngine{Paths: []string{"/nonexistent/chrome"}},
	}
	for name, engine := range engines {
		t.Run(name, func(t *testing.T) {
			out, err := engine.Render(context.Background(), "<p>hi</p>", Options{})
			assert.True(t, errors.Is(err, ErrEngineUnavailable), "got %v", err)
			assert.Nil(t, out)
		})
	}
}

func TestNew(t *testing.T) {
	e, err := New("", nil, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &ChromeEngine{}, e)

	e, err = New("Playwright", []string{"/usr/bin/chromium"}, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &PlaywrightEngine{}, e)

	_, err = New("wkhtmltopdf", nil, time.Second, nil)
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults(0)
	assert.Equal(t, ReportMargin, o.MarginMM)
	assert.Equal(t, DefaultTitle, o.Title)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o = Options{MarginMM: PreviewMargin, Title: "Report", Timeout: time.Second}.withDefaults(time.Minute)
	assert.Equal(t, PreviewMargin, o.MarginMM)
	assert.Equal(t, "Report", o.Title)
	assert.Equal(t, time.Second, o.Timeout)

	o = Options{}.withDefaults(time.Minute)
	assert.Equal(t, time.Minute, o.Timeout)
}

func TestMarginsInInches(t *testing.T) {
	assert.InDelta(t, 0.3937, mmToInches(PreviewMargin), 0.0001)
	assert.InDelta(t, 0.5906, mmToInches(ReportMargin), 0.0001)
}

func TestHeaderFooterTemplates(t *testing.T) {
	header := HeaderTemplate("Acme <PM>")
	assert.Contains(t, header, "Acme &lt;PM&gt;")

	footer := FooterTemplate(DefaultTitle)
	assert.Contains(t, footer, `Page <span class="pageNumber"></span> of <span class="totalPages"></span>`)
	assert.Contains(t, footer, DefaultTitle)
}

func TestClassify(t *testing.T) {
	parent := context.Background()

	expired, cancel := context.WithTimeout(parent, time.Nanosecond)
	defer cancel()
	<-expired.Done()
	assert.ErrorIs(t, classify(parent, expired, context.DeadlineExceeded), ErrRenderTimeout)

	live, cancelLive := context.WithCancel(parent)
	defer cancelLive()
	err := classify(parent, live, errors.New("boom"))
	assert.NotErrorIs(t, err, ErrRenderTimeout)
	assert.NotErrorIs(t, err, ErrEngineUnavailable)

	cancelled, cancelParent := context.WithCancel(parent)
	cancelParent()
	assert.ErrorIs(t, classify(cancelled, cancelled, context.Canceled), context.Canceled)

	assert.NoError(t, classify(parent, parent, nil))
}

func TestRequestTrackerIdle(t *testing.T) {
	tr := newRequestTracker()
	now := time.Now()

	tr.observe(&network.EventRequestWillBeSent{RequestID: "1"})
	assert.False(t, tr.idleFor(0, now.Add(time.Hour)), "request in flight")

	tr.observe(&network.EventLoadingFinished{RequestID: "1"})
	assert.False(t, tr.idleFor(time.Minute, time.Now()), "inside the quiet window")
	assert.True(t, tr.idleFor(time.Minute, time.Now().Add(2*time.Minute)))

	tr.observe(&network.EventRequestWillBeSent{RequestID: "2"})
	tr.observe(&network.EventLoadingFailed{RequestID: "2"})
	assert.True(t, tr.idleFor(0, time.Now().Add(time.Second)))
}

func TestRequestTrackerWaitIdleTimesOut(t *testing.T) {
	tr := newRequestTracker()
	tr.observe(&network.EventRequestWillBeSent{RequestID: "stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.waitIdle(ctx, 10*time.Millisecond), context.DeadlineExceeded)
}

func TestChromeEngineRendersPDF(t *testing.T) {
	if testing.Short() {
		t.Skip("browser test")
	}
	path, err := FindExecutable(nil)
	if err != nil {
		t.Skip("no browser available")
	}

	engine := &ChromeEngine{Paths: []string{path}, Timeout: 30 * time.Second}
	out, err := engine.Render(context.Background(), "<html><body><h1>Acme</h1></body></html>", Options{MarginMM: PreviewMargin})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
