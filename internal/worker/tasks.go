package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Task type constants
const (
	TaskGenerateReport = "report:generate"
	TaskPurgeReports   = "reports:purge"
)

// Queues.
const (
	QueueReports     = "reports"
	QueueMaintenance = "maintenance"
)

// generateReportPayload is the report:generate task body.
type generateReportPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// Client enqueues background report tasks.
type Client struct {
	client *asynq.Client
}

// NewClient connects an Asynq client to redisURL.
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// PingRedis reports whether the Redis behind the queue answers. NewClient
// does not dial, so callers check this before relying on the queue.
func PingRedis(ctx context.Context, redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

// Close closes the Asynq client connection gracefully.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueGenerateReport enqueues report generation for jobID. The job id is
// also the task id, so a job is never queued twice.
func (c *Client) EnqueueGenerateReport(ctx context.Context, jobID uuid.UUID) error {
	task, err := NewGenerateReportTask(jobID)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.TaskID(jobID.String())); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TaskGenerateReport, err)
	}
	return nil
}

// NewGenerateReportTask builds a report:generate task: 5-minute timeout, up
// to 3 retries, kept for 24 hours after completion.
func NewGenerateReportTask(jobID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(generateReportPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskGenerateReport,
		payload,
		asynq.Queue(QueueReports),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}
