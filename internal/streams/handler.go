package streams

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/interview-ace/internal/email"
	"github.com/jimdaga/interview-ace/internal/models"
	"gorm.io/gorm"
)

// HandleReportEvent returns a handler that emails completed reports to their
// owner and records EmailedAt. Already-emailed jobs are skipped.
func HandleReportEvent(db *gorm.DB, mailer email.Mailer, logger *slog.Logger) EventHandler {
	return func(ctx context.Context, ev ReportEvent) error {
		if ev.Type == EventReportFailed {
			logger.Warn("Report job failed", "job_id", ev.JobID, "user_id", ev.UserID, "error", ev.Error)
			return nil
		}
		if ev.Type != EventReportCompleted {
			return fmt.Errorf("unknown event type: %s", ev.Type)
		}

		var job models.ReportJob
		if err := db.WithContext(ctx).Where("id = ?", ev.JobID).First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Purged before delivery
				logger.Warn("Report job not found, skipping email", "job_id", ev.JobID)
				return nil
			}
			return fmt.Errorf("failed to find report job: %w", err)
		}

		if job.EmailedAt != nil {
			return nil
		}
		if job.Status != models.ReportJobStatusCompleted || len(job.PDF) == 0 {
			return fmt.Errorf("report job %s has no PDF (status %s)", job.ID, job.Status)
		}

		var user models.User
		if err := db.WithContext(ctx).First(&user, job.UserID).Error; err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}

		var prep models.Preparation
		title := ""
		if err := db.WithContext(ctx).Select("id", "title").Where("id = ?", job.PreparationID).First(&prep).Error; err == nil {
			title = prep.Title
		}

		msg, err := email.ReportEmail(user.Email, user.Name, title, job.PDF)
		if err != nil {
			return err
		}
		if err := mailer.Send(ctx, msg); err != nil {
			return fmt.Errorf("failed to email report: %w", err)
		}

		now := time.Now()
		if err := db.WithContext(ctx).Model(&job).Update("emailed_at", now).Error; err != nil {
			return fmt.Errorf("failed to mark report emailed: %w", err)
		}

		logger.Info("Report emailed", "job_id", job.ID, "user_id", user.ID)
		return nil
	}
}
