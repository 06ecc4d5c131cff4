package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/auth"
	"github.com/jimdaga/interview-ace/internal/models"
	"github.com/jimdaga/interview-ace/internal/preparations"
	"github.com/jimdaga/interview-ace/internal/report"
)

// RegisterPreparationRoutes mounts report routes for stored preparations on
// rg (/api/preparations). jobs may be nil, in which case premium reports are
// rendered synchronously too.
func RegisterPreparationRoutes(rg *gin.RouterGroup, db *gorm.DB, store *preparations.Store, gen *Generator, jobs Enqueuer, logger *slog.Logger) {
	rg.POST("/:id/report", PreparationReportHandler(db, store, gen, jobs, logger))
	rg.GET("/:id/report.html", PreparationHTMLHandler(store, gen, logger))
}

// RegisterJobRoutes mounts report job routes on rg (/api/reports).
func RegisterJobRoutes(rg *gin.RouterGroup, db *gorm.DB, logger *slog.Logger) {
	rg.GET("/:id", JobStatusHandler(db, logger))
	rg.GET("/:id/pdf", JobPDFHandler(db, logger))
}

// PreparationReportHandler generates a report for a stored preparation. Free
// users get the PDF in the response; premium users get a background job, or
// the PDF inline when the queue cannot take it.
func PreparationReportHandler(db *gorm.DB, store *preparations.Store, gen *Generator, jobs Enqueuer, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, prep, ok := loadPreparation(c, store, logger)
		if !ok {
			return
		}

		if user.IsPremium && jobs != nil {
			job, err := CreateJob(c.Request.Context(), db, user.ID, prep.ID)
			if err != nil {
				logger.Error("Failed to create report job", "error", err, "preparation_id", prep.ID)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue report", "details": genericDetails})
				return
			}

			err = jobs.EnqueueGenerateReport(c.Request.Context(), job.ID)
			if err == nil {
				logger.Info("Report job queued", "job_id", job.ID, "preparation_id", prep.ID, "user_id", user.ID)
				c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
				return
			}

			// Queue unreachable: the job is closed out and the PDF renders inline.
			logger.Warn("Failed to enqueue report job, rendering inline", "error", err, "job_id", job.ID)
			if err := MarkFailed(c.Request.Context(), db, job, "failed to enqueue report generation"); err != nil {
				logger.Error("Failed to mark report job failed", "error", err, "job_id", job.ID)
			}
		}

		ctx := context.WithoutCancel(c.Request.Context())
		out, err := gen.PDF(ctx, report.FromPreparation(*prep), report.Options{IsPremium: user.IsPremium},
			PDFOptions{Landscape: isTrue(c.Query("landscape"))})
		if err != nil {
			writeRenderError(c, logger, err)
			return
		}
		writePDF(c, out)
	}
}

// PreparationHTMLHandler previews the report for a stored preparation.
func PreparationHTMLHandler(store *preparations.Store, gen *Generator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, prep, ok := loadPreparation(c, store, logger)
		if !ok {
			return
		}

		html, err := gen.HTML(report.FromPreparation(*prep), report.Options{
			IsPremium:          user.IsPremium,
			ShowGenerateButton: isTrue(c.Query("showGenerateButton")),
		})
		if err != nil {
			writeRenderError(c, logger, err)
			return
		}
		c.Data(http.StatusOK, ContentTypeHTML, []byte(html))
	}
}

// JobStatusHandler returns a report job's status.
func JobStatusHandler(db *gorm.DB, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := loadJob(c, db, logger)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// JobPDFHandler downloads a completed job's PDF.
func JobPDFHandler(db *gorm.DB, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := loadJob(c, db, logger)
		if !ok {
			return
		}
		if job.Status != models.ReportJobStatusCompleted || len(job.PDF) == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "report not ready", "status": job.Status})
			return
		}
		writePDF(c, job.PDF)
	}
}

func loadPreparation(c *gin.Context, store *preparations.Store, logger *slog.Logger) (*models.User, *models.Preparation, bool) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return nil, nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		preparations.WriteError(c, logger, preparations.ErrNotFound)
		return nil, nil, false
	}
	prep, err := store.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		preparations.WriteError(c, logger, err)
		return nil, nil, false
	}
	return user, prep, true
}

func loadJob(c *gin.Context, db *gorm.DB, logger *slog.Logger) (*models.ReportJob, bool) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrJobNotFound.Error()})
		return nil, false
	}
	job, err := GetJob(c.Request.Context(), db, userID, id)
	if errors.Is(err, ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrJobNotFound.Error()})
		return nil, false
	}
	if err != nil {
		logger.Error("Failed to load report job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return job, true
}
