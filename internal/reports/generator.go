// Package reports turns preparations into HTML and PDF reports and serves the
// report endpoints.
package reports

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/jimdaga/interview-ace/internal/pdf"
	"github.com/jimdaga/interview-ace/internal/report"
)

// errEmptyPDF means the engine reported success without output.
var errEmptyPDF = errors.New("pdf engine returned no output")

// Enqueuer submits background report jobs.
type Enqueuer interface {
	EnqueueGenerateReport(ctx context.Context, jobID uuid.UUID) error
}

// Generator builds, renders and prints reports.
type Generator struct {
	Builder  report.Builder
	Renderer *report.Renderer
	Engine   pdf.Engine
}

// NewGenerator returns a Generator using the wall clock.
func NewGenerator(renderer *report.Renderer, engine pdf.Engine) *Generator {
	return &Generator{Renderer: renderer, Engine: engine}
}

// PDFOptions control page layout.
type PDFOptions struct {
	Landscape bool
	// Preview uses the narrower preview margins.
	Preview bool
}

// HTML renders prep (the unwrapped preparation object) to a complete document.
func (g *Generator) HTML(prep json.RawMessage, opts report.Options) (string, error) {
	return g.Renderer.Render(g.Builder.Build(prep, opts))
}

// PDF renders prep and prints it. The whole document is returned or nothing.
func (g *Generator) PDF(ctx context.Context, prep json.RawMessage, opts report.Options, popts PDFOptions) ([]byte, error) {
	manifest, err := g.Renderer.Load()
	if err != nil {
		return nil, err
	}
	html, err := g.HTML(prep, opts)
	if err != nil {
		return nil, err
	}

	margin := manifest.Page.MarginMM
	if popts.Preview {
		margin = manifest.Page.PreviewMarginMM
	}

	out, err := g.Engine.Render(ctx, html, pdf.Options{
		Landscape: popts.Landscape,
		MarginMM:  margin,
		Title:     manifest.HeaderTitle,
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errEmptyPDF
	}
	return out, nil
}
