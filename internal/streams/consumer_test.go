package streams

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/interview-ace/internal/database/dbtest"
	"github.com/jimdaga/interview-ace/internal/email"
	"github.com/jimdaga/interview-ace/internal/logging"
	"github.com/jimdaga/interview-ace/internal/models"
)

func TestEncodeDecodeEvent(t *testing.T) {
	ev := ReportEvent{Type: EventReportCompleted, JobID: "job-1", UserID: 7, PreparationID: "prep-1"}
	values, err := encodeEvent(ev, time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, SchemaVersionV1, values["schema_version"])
	assert.Equal(t, int64(1700000000), values["published_at"])

	decoded, err := decodeEvent(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)
}

func TestEncodeEventRequiresTypeAndJob(t *testing.T) {
	_, err := encodeEvent(ReportEvent{JobID: "job-1"}, time.Now())
	assert.Error(t, err)
	_, err = encodeEvent(ReportEvent{Type: EventReportCompleted}, time.Now())
	assert.Error(t, err)
}

func TestDecodeEventRejects(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"missing payload": {"schema_version": SchemaVersionV1},
		"bad json":        {"payload": "{", "schema_version": SchemaVersionV1},
		"future schema":   {"payload": `{"type":"report.completed","job_id":"j"}`, "schema_version": "v9"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEvent(redis.XMessage{ID: "1-0", Values: values})
			assert.Error(t, err)
		})
	}
}

func TestProcessAckDecisions(t *testing.T) {
	c := &EventConsumer{logger: logging.Discard()}
	good := redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"payload":        `{"type":"report.completed","job_id":"j"}`,
		"schema_version": SchemaVersionV1,
	}}

	var got ReportEvent
	ok := c.process(context.Background(), good, func(_ context.Context, ev ReportEvent) error {
		got = ev
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, "j", got.JobID)

	ok = c.process(context.Background(), good, func(context.Context, ReportEvent) error {
		return errors.New("smtp down")
	})
	assert.False(t, ok, "failed handler leaves the message pending")

	called := false
	ok = c.process(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]interface{}{}}, func(context.Context, ReportEvent) error {
		called = true
		return nil
	})
	assert.True(t, ok, "undecodable messages are acknowledged")
	assert.False(t, called)
}

// memGroup is an in-memory consumer group. claim ignores idle time and
// redelivers everything pending.
type memGroup struct {
	fresh   []redis.XMessage
	pending map[string]*delivery
	order   []string
	acked   []string
}

func newMemGroup(messages ...redis.XMessage) *memGroup {
	return &memGroup{fresh: messages, pending: map[string]*delivery{}}
}

func (g *memGroup) read(context.Context) ([]delivery, error) {
	if len(g.fresh) == 0 {
		return nil, redis.Nil
	}
	var out []delivery
	for _, m := range g.fresh {
		d := &delivery{message: m, count: 1}
		g.pending[m.ID] = d
		g.order = append(g.order, m.ID)
		out = append(out, *d)
	}
	g.fresh = nil
	return out, nil
}

func (g *memGroup) claim(context.Context, time.Duration) ([]delivery, error) {
	var out []delivery
	for _, id := range g.order {
		if d, ok := g.pending[id]; ok {
			d.count++
			out = append(out, *d)
		}
	}
	return out, nil
}

func (g *memGroup) ack(_ context.Context, id string) error {
	delete(g.pending, id)
	g.acked = append(g.acked, id)
	return nil
}

func eventMessage(t *testing.T, id string, ev ReportEvent) redis.XMessage {
	t.Helper()
	values, err := encodeEvent(ev, time.Now())
	require.NoError(t, err)
	for k, v := range values {
		// Redis hands every field back as a string.
		if _, ok := v.(string); !ok {
			values[k] = fmt.Sprint(v)
		}
	}
	return redis.XMessage{ID: id, Values: values}
}

func TestFailedEmailIsRedelivered(t *testing.T) {
	db := dbtest.New(t)
	_, job := seedCompletedJob(t, db)
	mailer := &email.Recorder{Err: errors.New("mailgun down")}
	grp := newMemGroup(eventMessage(t, "1-0", completedEvent(job)))
	c := &EventConsumer{group: grp, logger: logging.Discard(), maxDeliveries: DefaultMaxDeliveries}
	handler := HandleReportEvent(db, mailer, logging.Discard())

	require.NoError(t, c.poll(context.Background(), handler))
	assert.Empty(t, mailer.Sent())
	assert.Contains(t, grp.pending, "1-0")

	mailer.Err = nil
	assert.ErrorIs(t, c.poll(context.Background(), handler), redis.Nil)
	assert.Len(t, mailer.Sent(), 1)
	assert.Empty(t, grp.pending)
	assert.Equal(t, []string{"1-0"}, grp.acked)

	var reloaded models.ReportJob
	require.NoError(t, db.First(&reloaded, "id = ?", job.ID).Error)
	assert.NotNil(t, reloaded.EmailedAt)
}

func TestDeliveriesAreCapped(t *testing.T) {
	grp := newMemGroup(redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"payload":        `{"type":"report.completed","job_id":"j"}`,
		"schema_version": SchemaVersionV1,
	}})
	c := &EventConsumer{group: grp, logger: logging.Discard(), maxDeliveries: 3}
	calls := 0
	handler := func(context.Context, ReportEvent) error {
		calls++
		return errors.New("smtp down")
	}

	for i := 0; i < 6; i++ {
		_ = c.poll(context.Background(), handler)
	}
	assert.Equal(t, 3, calls)
	assert.Empty(t, grp.pending, "message is dropped once the cap is passed")
	assert.Equal(t, []string{"1-0"}, grp.acked)
}

func TestNopPublisher(t *testing.T) {
	id, err := NopPublisher{}.PublishReportEvent(context.Background(), ReportEvent{Type: EventReportCompleted, JobID: "j"})
	assert.NoError(t, err)
	assert.Empty(t, id)
}
