package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/config"
	"github.com/jimdaga/interview-ace/internal/reports"
	"github.com/jimdaga/interview-ace/internal/streams"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

const (
	defaultConcurrency = 5
	baseRetryDelay     = 10 * time.Second
	maxRetryDelay      = 5 * time.Minute
)

// Deps are the collaborators task handlers use.
type Deps struct {
	DB            *gorm.DB
	Generator     *reports.Generator
	Publisher     streams.EventPublisher
	RetentionDays int
	Logger        *slog.Logger
}

// Queue weights: report rendering is user-facing, purges can wait.
var queues = map[string]int{
	QueueReports:     6,
	QueueMaintenance: 1,
}

// Run serves report tasks until SIGINT/SIGTERM. Used by MODE=worker.
func Run(cfg *config.Config, deps Deps) error {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start serves report tasks in the background and returns a stop function.
// Used by MODE=embedded, where the HTTP server owns signal handling.
func Start(cfg *config.Config, deps Deps) (stop func(), err error) {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return srv.Shutdown, nil
}

func newServer(cfg *config.Config, deps Deps) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     concurrency,
		Queues:          queues,
		ShutdownTimeout: 30 * time.Second,
		RetryDelayFunc:  retryDelay,
		ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(deps.Logger)),
		Logger:          &asynqLoggerAdapter{logger: deps.Logger},
	})

	deps.Logger.Info("Report worker starting", "concurrency", concurrency, "queues", queues)
	return srv, NewMux(deps), nil
}

// NewMux routes every task type to its handler.
func NewMux(deps Deps) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGenerateReport, handleGenerateReport(deps))
	mux.HandleFunc(TaskPurgeReports, handlePurgeReports(deps))
	return mux
}

// retryDelay doubles from 10s per attempt, capped at 5 minutes.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < n && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// makeErrorHandler logs failed attempts with the report job they belong to.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		fields := []interface{}{
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		}
		var payload generateReportPayload
		if json.Unmarshal(task.Payload(), &payload) == nil && payload.JobID != uuid.Nil {
			fields = append(fields, "job_id", payload.JobID)
		}

		if retried >= maxRetry || errors.Is(err, asynq.SkipRetry) {
			logger.Error("Report task archived", fields...)
			return
		}
		logger.Warn("Report task failed, will retry", fields...)
	}
}
