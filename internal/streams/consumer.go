package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventHandler processes one report event. A returned error leaves the message
// pending for redelivery.
type EventHandler func(ctx context.Context, ev ReportEvent) error

const (
	// DefaultClaimIdle is how long a failed message stays pending before it
	// is delivered again.
	DefaultClaimIdle = 30 * time.Second
	// DefaultMaxDeliveries caps delivery attempts per message. Messages past
	// the cap are logged and acknowledged.
	DefaultMaxDeliveries = 5
)

// delivery is a stream message with the number of times the group has
// handed it out, this delivery included.
type delivery struct {
	message redis.XMessage
	count   int64
}

// group is the consumer-group surface EventConsumer needs.
type group interface {
	// read returns new messages, blocking briefly when there are none.
	read(ctx context.Context) ([]delivery, error)
	// claim takes over messages pending longer than minIdle.
	claim(ctx context.Context, minIdle time.Duration) ([]delivery, error)
	ack(ctx context.Context, id string) error
}

// EventConsumer consumes report events from Redis Streams
type EventConsumer struct {
	rdb           *redis.Client
	group         group
	logger        *slog.Logger
	claimIdle     time.Duration
	maxDeliveries int64
}

// NewEventConsumer creates a new EventConsumer instance
func NewEventConsumer(redisURL, consumerName string, logger *slog.Logger) (*EventConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	// Start ID "0" means read from beginning if group is new
	err = client.XGroupCreateMkStream(context.Background(), StreamReportEvents, GroupMailers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &EventConsumer{
		rdb:           client,
		group:         &redisGroup{rdb: client, name: GroupMailers, consumer: consumerName, cursor: "0-0"},
		logger:        logger,
		claimIdle:     DefaultClaimIdle,
		maxDeliveries: DefaultMaxDeliveries,
	}, nil
}

// Consume runs a blocking loop until ctx is cancelled.
func (c *EventConsumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.poll(ctx, handler)
		if err == nil || errors.Is(err, redis.Nil) {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Blocking reads time out on idle streams
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		c.logger.Error("Failed to read from stream", "error", err)
		time.Sleep(time.Second)
	}
}

// poll runs one cycle: messages left pending by earlier failures are retried
// first, then new messages are read.
func (c *EventConsumer) poll(ctx context.Context, handler EventHandler) error {
	claimed, err := c.group.claim(ctx, c.claimIdle)
	if err != nil && !errors.Is(err, redis.Nil) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("Failed to claim pending messages", "error", err)
	}
	c.handle(ctx, claimed, handler)

	fresh, err := c.group.read(ctx)
	if err != nil {
		return err
	}
	c.handle(ctx, fresh, handler)
	return nil
}

func (c *EventConsumer) handle(ctx context.Context, batch []delivery, handler EventHandler) {
	for _, d := range batch {
		if d.count > c.maxDeliveries {
			c.logger.Error("Dropping report event after repeated failures",
				"message_id", d.message.ID, "deliveries", d.count)
		} else if !c.process(ctx, d.message, handler) {
			continue
		}
		if err := c.group.ack(ctx, d.message.ID); err != nil {
			c.logger.Error("Failed to ACK message", "error", err, "message_id", d.message.ID)
		}
	}
}

// process reports whether the message should be acknowledged. Undecodable
// messages are acknowledged so they do not block the group.
func (c *EventConsumer) process(ctx context.Context, message redis.XMessage, handler EventHandler) bool {
	ev, err := decodeEvent(message)
	if err != nil {
		c.logger.Error("Dropping invalid report event", "error", err, "message_id", message.ID)
		return true
	}

	if err := handler(ctx, ev); err != nil {
		// Message stays in PEL for retry
		c.logger.Error("Handler failed", "error", err, "job_id", ev.JobID, "type", ev.Type)
		return false
	}
	return true
}

func decodeEvent(message redis.XMessage) (ReportEvent, error) {
	var ev ReportEvent

	payload, ok := message.Values["payload"].(string)
	if !ok {
		return ev, fmt.Errorf("missing payload")
	}
	if v, ok := message.Values["schema_version"].(string); ok && v != SchemaVersionV1 {
		return ev, fmt.Errorf("unsupported schema version %q", v)
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return ev, nil
}

type redisGroup struct {
	rdb      *redis.Client
	name     string
	consumer string
	// cursor is where the next XAUTOCLAIM scan starts.
	cursor string
}

func (g *redisGroup) read(ctx context.Context) ([]delivery, error) {
	streams, err := g.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    g.name,
		Consumer: g.consumer,
		Streams:  []string{StreamReportEvents, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []delivery
	for _, stream := range streams {
		for _, message := range stream.Messages {
			out = append(out, delivery{message: message, count: 1})
		}
	}
	return out, nil
}

func (g *redisGroup) claim(ctx context.Context, minIdle time.Duration) ([]delivery, error) {
	messages, next, err := g.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamReportEvents,
		Group:    g.name,
		Consumer: g.consumer,
		MinIdle:  minIdle,
		Start:    g.cursor,
		Count:    10,
	}).Result()
	if err != nil {
		return nil, err
	}
	g.cursor = next
	if g.cursor == "" {
		g.cursor = "0-0"
	}
	if len(messages) == 0 {
		return nil, nil
	}

	// XAUTOCLAIM bumps the delivery counter; XPENDING reports it.
	pending, err := g.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamReportEvents,
		Group:  g.name,
		Start:  messages[0].ID,
		End:    messages[len(messages)-1].ID,
		Count:  int64(len(messages)),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery counts: %w", err)
	}
	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}

	out := make([]delivery, 0, len(messages))
	for _, message := range messages {
		// Entries trimmed from the stream come back without values.
		if message.Values == nil {
			if err := g.ack(ctx, message.ID); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, delivery{message: message, count: counts[message.ID]})
	}
	return out, nil
}

func (g *redisGroup) ack(ctx context.Context, id string) error {
	return g.rdb.XAck(ctx, StreamReportEvents, g.name, id).Err()
}

// Close closes the Redis client connection
func (c *EventConsumer) Close() error {
	return c.rdb.Close()
}

// StartEventConsumer starts a consumer in a background goroutine and returns
// a stop function.
func StartEventConsumer(redisURL string, handler EventHandler, logger *slog.Logger) (stop func(), err error) {
	consumer, err := NewEventConsumer(redisURL, "mailer-1", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := consumer.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumer stopped with error", "error", err)
		}
	}()

	logger.Info("Report event consumer started", "stream", StreamReportEvents, "group", GroupMailers)

	return func() {
		cancel()
		<-done
		consumer.Close()
	}, nil
}
