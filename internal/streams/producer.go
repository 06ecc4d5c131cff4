package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventPublisher publishes report events.
type EventPublisher interface {
	PublishReportEvent(ctx context.Context, ev ReportEvent) (string, error)
}

// Publisher publishes report events to Redis Streams
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher instance
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Publisher{rdb: redis.NewClient(opts)}, nil
}

// PublishReportEvent appends ev to the report event stream and returns the
// message id.
func (p *Publisher) PublishReportEvent(ctx context.Context, ev ReportEvent) (string, error) {
	values, err := encodeEvent(ev, time.Now())
	if err != nil {
		return "", err
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamReportEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*", // auto-generate ID
		Values: values,
	})

	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return result.Val(), nil
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

func encodeEvent(ev ReportEvent, now time.Time) (map[string]interface{}, error) {
	if ev.Type == "" || ev.JobID == "" {
		return nil, fmt.Errorf("report event requires type and job_id")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return map[string]interface{}{
		"payload":        string(payload),
		"published_at":   now.Unix(),
		"schema_version": SchemaVersionV1,
	}, nil
}

// NopPublisher drops events. Used when Redis is not configured.
type NopPublisher struct{}

// PublishReportEvent does nothing.
func (NopPublisher) PublishReportEvent(context.Context, ReportEvent) (string, error) {
	return "", nil
}
