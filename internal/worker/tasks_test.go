package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/interview-ace/internal/logging"
)

func TestNewGenerateReportTask(t *testing.T) {
	id := uuid.New()
	task, err := NewGenerateReportTask(id)
	require.NoError(t, err)
	assert.Equal(t, TaskGenerateReport, task.Type())

	var payload generateReportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, id, payload.JobID)
}

func TestNewPurgeReportsTask(t *testing.T) {
	assert.Equal(t, TaskPurgeReports, NewPurgeReportsTask().Type())
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("://not-a-url")
	assert.Error(t, err)
}

func TestMuxRoutesTaskTypes(t *testing.T) {
	f := newFixture(t, true)
	mux := NewMux(f.deps)

	task, err := NewGenerateReportTask(f.job.ID)
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	require.NoError(t, mux.ProcessTask(context.Background(), NewPurgeReportsTask()))

	assert.Error(t, mux.ProcessTask(context.Background(), asynq.NewTask("unknown:task", nil)))
}

func TestAsynqLoggerAdapterFatalPanics(t *testing.T) {
	a := &asynqLoggerAdapter{logger: logging.Discard()}
	a.Info("worker", " ready")
	assert.Panics(t, func() { a.Fatal("boom") })
}

func TestRetryDelay(t *testing.T) {
	task := asynq.NewTask(TaskGenerateReport, nil)

	assert.Equal(t, 10*time.Second, retryDelay(0, nil, task))
	assert.Equal(t, 20*time.Second, retryDelay(1, nil, task))
	assert.Equal(t, 80*time.Second, retryDelay(3, nil, task))
	assert.Equal(t, maxRetryDelay, retryDelay(10, nil, task))
}

func TestQueuesCoverTaskQueues(t *testing.T) {
	assert.Contains(t, queues, QueueReports)
	assert.Contains(t, queues, QueueMaintenance)
	assert.Greater(t, queues[QueueReports], queues[QueueMaintenance])
}

func TestPingRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, PingRedis(ctx, "not a url"))
	// Nothing listens on port 1.
	assert.Error(t, PingRedis(ctx, "redis://127.0.0.1:1/0"))
}
