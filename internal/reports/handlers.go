package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/interview-ace/internal/report"
)

// Response headers for PDF output.
const (
	ContentTypePDF     = "application/pdf"
	ContentTypeHTML    = "text/html; charset=utf-8"
	contentDisposition = `inline; filename="report.pdf"`
)

// RegisterPDFRoutes mounts the stateless report endpoints on rg (/api/pdf).
func RegisterPDFRoutes(rg *gin.RouterGroup, gen *Generator, logger *slog.Logger) {
	generate := GeneratePDFHandler(gen, logger)
	for _, path := range []string{"", "/", "/generate", "/pdf"} {
		rg.POST(path, generate)
	}

	preview := PreviewHTMLHandler(gen, logger)
	for _, path := range []string{"/html", "/preview"} {
		rg.GET(path, preview)
		rg.POST(path, preview)
	}

	rg.GET("/sample", SamplePDFHandler(gen, logger))
}

// GeneratePDFHandler renders the posted preparation to PDF.
func GeneratePDFHandler(gen *Generator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}

		payload, err := report.NormalizeRequestPayload(body)
		if err != nil {
			writeRenderError(c, logger, err)
			return
		}

		// The render is bounded by the engine timeout, not the client connection
		ctx := context.WithoutCancel(c.Request.Context())
		out, err := gen.PDF(ctx, payload.Preparation, payload.Options, PDFOptions{Landscape: payload.Landscape})
		if err != nil {
			writeRenderError(c, logger, err)
			return
		}

		writePDF(c, out)
	}
}

// PreviewHTMLHandler renders a preparation to HTML. The preparation comes from
// the built-in sample (sample=1), the base64 data query parameter, or the
// request body, in that order.
func PreviewHTMLHandler(gen *Generator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := previewPayload(c)
		if err != nil {
			writeRenderError(c, logger, err)
			return
		}

		html, err := gen.HTML(payload.Preparation, payload.Options)
		if err != nil {
			writeRenderError(c, logger, err)
			return
		}

		c.Data(http.StatusOK, ContentTypeHTML, []byte(html))
	}
}

// SamplePDFHandler prints the built-in sample preparation.
func SamplePDFHandler(gen *Generator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		out, err := gen.PDF(ctx, report.SamplePreparation(), report.Options{}, PDFOptions{Preview: true})
		if err != nil {
			writeRenderError(c, logger, err)
			return
		}
		writePDF(c, out)
	}
}

func previewPayload(c *gin.Context) (report.RequestPayload, error) {
	if isTrue(c.Query("sample")) {
		return report.RequestPayload{Preparation: report.SamplePreparation()}, nil
	}

	if data := c.Query("data"); data != "" {
		body, err := report.DecodeDataParam(data)
		if err != nil {
			return report.RequestPayload{}, err
		}
		return report.NormalizeRequestPayload(body)
	}

	var body []byte
	if c.Request.Method == http.MethodPost {
		raw, err := c.GetRawData()
		if err != nil {
			return report.RequestPayload{}, err
		}
		body = raw
	}
	return report.NormalizeRequestPayload(body)
}

func writePDF(c *gin.Context, out []byte) {
	c.Header("Content-Disposition", contentDisposition)
	c.Data(http.StatusOK, ContentTypePDF, out)
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
