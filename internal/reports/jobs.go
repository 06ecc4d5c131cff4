package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/models"
)

// ErrJobNotFound means no report job with that id belongs to the caller.
var ErrJobNotFound = errors.New("report job not found")

// CreateJob inserts a pending report job.
func CreateJob(ctx context.Context, db *gorm.DB, userID uint, prepID uuid.UUID) (*models.ReportJob, error) {
	job := &models.ReportJob{
		UserID:        userID,
		PreparationID: prepID,
		Status:        models.ReportJobStatusPending,
	}
	if err := db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create report job: %w", err)
	}
	return job, nil
}

// GetJob loads a job owned by userID. Foreign jobs are reported as missing.
func GetJob(ctx context.Context, db *gorm.DB, userID uint, id uuid.UUID) (*models.ReportJob, error) {
	var job models.ReportJob
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report job: %w", err)
	}
	return &job, nil
}

// MarkFailed records a terminal failure.
func MarkFailed(ctx context.Context, db *gorm.DB, job *models.ReportJob, reason string) error {
	job.Status = models.ReportJobStatusFailed
	job.ErrorMessage = reason
	return db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":        models.ReportJobStatusFailed,
		"error_message": reason,
	}).Error
}
