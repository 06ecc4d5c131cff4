package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report job status constants
const (
	ReportJobStatusPending    = "pending"
	ReportJobStatusProcessing = "processing"
	ReportJobStatusCompleted  = "completed"
	ReportJobStatusFailed     = "failed"
)

// ReportJob tracks an asynchronous (premium) report generation and the
// resulting PDF.
type ReportJob struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"-"`
	PreparationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"preparation_id"`
	Status        string     `gorm:"not null;default:'pending';index" json:"status"`
	PDF           []byte     `gorm:"column:pdf" json:"-"`
	ErrorMessage  string     `gorm:"column:error_message;type:text" json:"error,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	EmailedAt     *time.Time `json:"emailed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the job id.
func (j *ReportJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
