package reports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/interview-ace/internal/pdf"
	"github.com/jimdaga/interview-ace/internal/report"
)

// genericDetails is shown for failures whose cause is only logged.
const genericDetails = "The report could not be generated. Please try again later."

// writeRenderError maps a report failure onto a JSON error envelope. Nothing
// else has been written to the response at this point.
func writeRenderError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *report.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": verr.Error(), "fields": verr.Fields})
		return
	}

	message := "failed to generate report"
	switch {
	case errors.Is(err, report.ErrTemplateUnavailable):
		message = "report template unavailable"
	case errors.Is(err, report.ErrRenderFailed):
		message = "failed to render report"
	case errors.Is(err, pdf.ErrEngineUnavailable):
		message = "pdf engine unavailable"
	case errors.Is(err, pdf.ErrRenderTimeout):
		message = "pdf generation timed out"
	}

	logger.Error("Report generation failed", "error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": genericDetails})
}
