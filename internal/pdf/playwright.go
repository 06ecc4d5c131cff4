package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine renders through playwright-go's Chromium driver. The
// driver must be installed (playwright install chromium) unless Paths points
// at a browser.
type PlaywrightEngine struct {
	Paths   []string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Render starts the driver and a browser, sets html with networkidle waiting
// and prints it. Driver, browser and page are released on every path.
func (e *PlaywrightEngine) Render(ctx context.Context, html string, opts Options) ([]byte, error) {
	opts = opts.withDefaults(e.Timeout)
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeoutMS := float64(opts.Timeout.Milliseconds())
	start := time.Now()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: could not start playwright: %v", ErrEngineUnavailable, err)
	}
	defer func() {
		if err := pw.Stop(); err != nil {
			logger.Warn("failed to stop playwright", "error", err)
		}
	}()

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Timeout:  playwright.Float(timeoutMS),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
	}
	if path, err := FindExecutable(e.Paths); err == nil {
		launch.ExecutablePath = playwright.String(path)
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		return nil, fmt.Errorf("%w: could not launch chromium: %v", ErrEngineUnavailable, err)
	}
	defer browser.Close()

	pg, err := browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: could not create page: %v", ErrEngineUnavailable, err)
	}
	defer pg.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pdf render aborted: %w", err)
	}

	if err := pg.SetContent(html, playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeoutMS),
	}); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrRenderTimeout, err)
		}
		return nil, fmt.Errorf("could not set page content: %w", err)
	}

	margin := strconv.FormatFloat(opts.MarginMM, 'f', -1, 64) + "mm"
	buf, err := pg.PDF(playwright.PagePdfOptions{
		Format:              playwright.String("A4"),
		Landscape:           playwright.Bool(opts.Landscape),
		PrintBackground:     playwright.Bool(true),
		DisplayHeaderFooter: playwright.Bool(true),
		HeaderTemplate:      playwright.String(HeaderTemplate(opts.Title)),
		FooterTemplate:      playwright.String(FooterTemplate(opts.Title)),
		Margin: &playwright.Margin{
			Top:    playwright.String(margin),
			Bottom: playwright.String(margin),
			Left:   playwright.String(margin),
			Right:  playwright.String(margin),
		},
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrRenderTimeout, err)
		}
		return nil, fmt.Errorf("could not generate PDF: %w", err)
	}

	logger.Debug("pdf rendered",
		"engine", EnginePlaywright,
		"bytes", len(buf),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}
