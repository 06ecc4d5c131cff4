package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/interview-ace/internal/logging"
)

func newStubGateway(stub *StubClient) *Gateway {
	return NewGateway(stub, logging.Discard())
}

func TestCallJSON(t *testing.T) {
	tests := map[string]string{
		"plain":        `{"a": 1}`,
		"fenced":       "```json\n{\"a\": 1}\n```",
		"bare fence":   "```\n{\"a\": 1}\n```",
		"surrounding ": "\n  {\"a\": 1}  \n",
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			g := newStubGateway(&StubClient{Responses: map[string]string{"x": reply}})
			resp, err := g.Call(context.Background(), "TASK: x\nhello", CallOptions{JSON: true})
			require.NoError(t, err)
			assert.Equal(t, float64(1), resp.JSON["a"])
			assert.Equal(t, int64(1), resp.Result().Get("a").Int())
		})
	}
}

func TestCallJSONRejectsMalformedReplies(t *testing.T) {
	for _, reply := range []string{"", "not json", `{"a":`, `[1, 2]`, `"string"`, "```json\n```"} {
		g := newStubGateway(&StubClient{Responses: map[string]string{"x": reply}})
		_, err := g.Call(context.Background(), "TASK: x", CallOptions{JSON: true})
		assert.ErrorIs(t, err, ErrGenerationFailed, "reply %q", reply)
	}
}

func TestCallText(t *testing.T) {
	g := newStubGateway(&StubClient{Responses: map[string]string{"x": "plain answer"}})
	resp, err := g.Call(context.Background(), "TASK: x", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "plain answer", resp.Text)
	assert.Nil(t, resp.JSON)

	g = newStubGateway(&StubClient{Responses: map[string]string{"x": "  "}})
	_, err = g.Call(context.Background(), "TASK: x", CallOptions{})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestCallUpstreamError(t *testing.T) {
	upstream := errors.New("connection reset")
	g := newStubGateway(&StubClient{Err: upstream})

	_, err := g.Call(context.Background(), "TASK: x", CallOptions{JSON: true})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, upstream)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "call", genErr.Task)
}

func TestCallWithoutModel(t *testing.T) {
	var g *Gateway
	_, err := g.Call(context.Background(), "hi", CallOptions{})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestPromptTask(t *testing.T) {
	assert.Equal(t, TaskSWOT, promptTask(taskPrompt(TaskSWOT, "body")))
	assert.Equal(t, "", promptTask("no task line"))
}
