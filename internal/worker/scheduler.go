package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/interview-ace/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler for periodic tasks.
// Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entryID, err := scheduler.Register(cfg.ReportPurgeSchedule, NewPurgeReportsTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register purge schedule: %w", err)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"schedule", cfg.ReportPurgeSchedule,
		"retention_days", cfg.ReportRetentionDays,
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}

// NewPurgeReportsTask builds the periodic retention task.
func NewPurgeReportsTask() *asynq.Task {
	return asynq.NewTask(
		TaskPurgeReports,
		nil, // handler purges everything past retention
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Hour), // Prevent duplicate if scheduler runs twice
	)
}
