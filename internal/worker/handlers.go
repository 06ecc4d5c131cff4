package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/models"
	"github.com/jimdaga/interview-ace/internal/report"
	"github.com/jimdaga/interview-ace/internal/reports"
	"github.com/jimdaga/interview-ace/internal/streams"
)

// handleGenerateReport renders a queued report to PDF, stores it on the job
// and publishes report.completed.
func handleGenerateReport(deps Deps) func(context.Context, *asynq.Task) error {
	logger := deps.Logger
	db := deps.DB

	return func(ctx context.Context, task *asynq.Task) error {
		var payload generateReportPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		var job models.ReportJob
		if err := db.WithContext(ctx).Where("id = ?", payload.JobID).First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Error("Report job not found", "job_id", payload.JobID)
				return fmt.Errorf("report job not found: %w", asynq.SkipRetry)
			}
			// Database error - retryable
			return fmt.Errorf("failed to fetch report job: %w", err)
		}

		switch job.Status {
		case models.ReportJobStatusCompleted:
			// A previous attempt stored the PDF but could not publish
			return publish(ctx, deps, &job, streams.EventReportCompleted)
		case models.ReportJobStatusFailed:
			logger.Warn("Skipping failed report job", "job_id", job.ID)
			return nil
		}

		logger.Info("Processing report:generate task", "job_id", job.ID, "user_id", job.UserID)

		var prep models.Preparation
		if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", job.PreparationID, job.UserID).First(&prep).Error; err != nil {
			return failLookup(ctx, deps, &job, "preparation", err)
		}
		var user models.User
		if err := db.WithContext(ctx).First(&user, job.UserID).Error; err != nil {
			return failLookup(ctx, deps, &job, "user", err)
		}

		if err := db.WithContext(ctx).Model(&job).Update("status", models.ReportJobStatusProcessing).Error; err != nil {
			return fmt.Errorf("failed to mark report job processing: %w", err)
		}

		start := time.Now()
		out, err := deps.Generator.PDF(ctx, report.FromPreparation(prep), report.Options{IsPremium: user.IsPremium}, reports.PDFOptions{})
		if err != nil {
			permanent := errors.Is(err, report.ErrTemplateUnavailable) || errors.Is(err, report.ErrRenderFailed)
			if permanent || lastAttempt(ctx) {
				if markErr := reports.MarkFailed(ctx, db, &job, err.Error()); markErr != nil {
					logger.Error("Failed to mark report job failed", "job_id", job.ID, "error", markErr)
				}
				if pubErr := publish(ctx, deps, &job, streams.EventReportFailed); pubErr != nil {
					logger.Error("Failed to publish report failure", "job_id", job.ID, "error", pubErr)
				}
			} else if msgErr := db.WithContext(ctx).Model(&job).Update("error_message", err.Error()).Error; msgErr != nil {
				logger.Error("Failed to record report error", "job_id", job.ID, "error", msgErr)
			}

			logger.Error("Report render failed", "job_id", job.ID, "error", err, "permanent", permanent)
			if permanent {
				return fmt.Errorf("report render failed: %v: %w", err, asynq.SkipRetry)
			}
			return fmt.Errorf("report render failed: %w", err)
		}

		now := time.Now()
		if err := db.WithContext(ctx).Model(&job).Updates(map[string]interface{}{
			"status":        models.ReportJobStatusCompleted,
			"pdf":           out,
			"completed_at":  now,
			"error_message": "",
		}).Error; err != nil {
			return fmt.Errorf("failed to store report: %w", err)
		}

		logger.Info("Report generation completed",
			"job_id", job.ID,
			"bytes", len(out),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		return publish(ctx, deps, &job, streams.EventReportCompleted)
	}
}

// handlePurgeReports deletes report jobs older than the retention window.
func handlePurgeReports(deps Deps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		if deps.RetentionDays <= 0 {
			deps.Logger.Info("Report retention disabled, nothing to purge")
			return nil
		}

		cutoff := time.Now().AddDate(0, 0, -deps.RetentionDays)
		result := deps.DB.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ReportJob{})
		if result.Error != nil {
			return fmt.Errorf("failed to purge report jobs: %w", result.Error)
		}

		deps.Logger.Info("Purged expired report jobs", "deleted", result.RowsAffected, "cutoff", cutoff.Format(time.RFC3339))
		return nil
	}
}

func publish(ctx context.Context, deps Deps, job *models.ReportJob, eventType string) error {
	if deps.Publisher == nil {
		return nil
	}
	ev := streams.ReportEvent{
		Type:          eventType,
		JobID:         job.ID.String(),
		UserID:        job.UserID,
		PreparationID: job.PreparationID.String(),
		Error:         job.ErrorMessage,
	}
	msgID, err := deps.Publisher.PublishReportEvent(ctx, ev)
	if err != nil {
		// Retryable: the stream may be temporarily unavailable
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	deps.Logger.Info("Report event published", "job_id", job.ID, "type", eventType, "stream_msg_id", msgID)
	return nil
}

func failLookup(ctx context.Context, deps Deps, job *models.ReportJob, what string, err error) error {
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to fetch %s: %w", what, err)
	}
	if markErr := reports.MarkFailed(ctx, deps.DB, job, what+" not found"); markErr != nil {
		deps.Logger.Error("Failed to mark report job failed", "job_id", job.ID, "error", markErr)
	}
	return fmt.Errorf("%s not found: %w", what, asynq.SkipRetry)
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= maxRetry
}
