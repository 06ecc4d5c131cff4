package streams

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/interview-ace/internal/database/dbtest"
	"github.com/jimdaga/interview-ace/internal/email"
	"github.com/jimdaga/interview-ace/internal/logging"
	"github.com/jimdaga/interview-ace/internal/models"
	"gorm.io/gorm"
)

func seedCompletedJob(t *testing.T, db *gorm.DB) (*models.User, *models.ReportJob) {
	t.Helper()
	user := dbtest.CreateUser(t, db, "jo@example.com", true)
	prep := &models.Preparation{UserID: user.ID, Title: "Senior PM at Acme"}
	require.NoError(t, db.Create(prep).Error)

	now := time.Now()
	job := &models.ReportJob{
		UserID:        user.ID,
		PreparationID: prep.ID,
		Status:        models.ReportJobStatusCompleted,
		PDF:           []byte("%PDF-1.4 test"),
		CompletedAt:   &now,
	}
	require.NoError(t, db.Create(job).Error)
	return user, job
}

func completedEvent(job *models.ReportJob) ReportEvent {
	return ReportEvent{
		Type:          EventReportCompleted,
		JobID:         job.ID.String(),
		UserID:        job.UserID,
		PreparationID: job.PreparationID.String(),
	}
}

func TestHandleReportEventEmailsPDF(t *testing.T) {
	db := dbtest.New(t)
	_, job := seedCompletedJob(t, db)
	mailer := &email.Recorder{}

	handler := HandleReportEvent(db, mailer, logging.Discard())
	require.NoError(t, handler(context.Background(), completedEvent(job)))

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jo@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, "Senior PM at Acme")
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, job.PDF, sent[0].Attachments[0].Content)

	var reloaded models.ReportJob
	require.NoError(t, db.First(&reloaded, "id = ?", job.ID).Error)
	assert.NotNil(t, reloaded.EmailedAt)
}

func TestHandleReportEventIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	_, job := seedCompletedJob(t, db)
	mailer := &email.Recorder{}
	handler := HandleReportEvent(db, mailer, logging.Discard())

	require.NoError(t, handler(context.Background(), completedEvent(job)))
	require.NoError(t, handler(context.Background(), completedEvent(job)))
	assert.Len(t, mailer.Sent(), 1)
}

func TestHandleReportEventMailerFailureKeepsPending(t *testing.T) {
	db := dbtest.New(t)
	_, job := seedCompletedJob(t, db)
	mailer := &email.Recorder{Err: errors.New("mailgun down")}

	err := HandleReportEvent(db, mailer, logging.Discard())(context.Background(), completedEvent(job))
	require.Error(t, err)

	var reloaded models.ReportJob
	require.NoError(t, db.First(&reloaded, "id = ?", job.ID).Error)
	assert.Nil(t, reloaded.EmailedAt)
}

func TestHandleReportEventMissingJob(t *testing.T) {
	db := dbtest.New(t)
	mailer := &email.Recorder{}
	err := HandleReportEvent(db, mailer, logging.Discard())(context.Background(), ReportEvent{
		Type:  EventReportCompleted,
		JobID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
	})
	assert.NoError(t, err)
	assert.Empty(t, mailer.Sent())
}

func TestHandleReportEventFailedAndUnknown(t *testing.T) {
	db := dbtest.New(t)
	mailer := &email.Recorder{}
	handler := HandleReportEvent(db, mailer, logging.Discard())

	assert.NoError(t, handler(context.Background(), ReportEvent{Type: EventReportFailed, JobID: "x", Error: "timeout"}))
	assert.Error(t, handler(context.Background(), ReportEvent{Type: "report.exploded", JobID: "x"}))
	assert.Empty(t, mailer.Sent())
}

func TestHandleReportEventIncompleteJob(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "sam@example.com", true)
	prep := &models.Preparation{UserID: user.ID}
	require.NoError(t, db.Create(prep).Error)
	job := &models.ReportJob{UserID: user.ID, PreparationID: prep.ID, Status: models.ReportJobStatusProcessing}
	require.NoError(t, db.Create(job).Error)

	err := HandleReportEvent(db, &email.Recorder{}, logging.Discard())(context.Background(), completedEvent(job))
	assert.Error(t, err)
}
