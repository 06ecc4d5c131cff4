package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// CallOptions are the options of Gateway.Call.
type CallOptions struct {
	JSON bool
}

// Response is either raw text or, when JSON was requested, the parsed object.
type Response struct {
	Text string
	JSON map[string]interface{}
	Raw  json.RawMessage
}

// Result returns the parsed value as gjson for lenient field access.
func (r Response) Result() gjson.Result {
	if len(r.Raw) > 0 {
		return gjson.ParseBytes(r.Raw)
	}
	return gjson.Parse(r.Text)
}

// Gateway is the single entry point for model calls.
type Gateway struct {
	llm     LLM
	logger  *slog.Logger
	fetcher *Fetcher
}

// NewGateway wraps llm. A nil logger uses slog.Default.
func NewGateway(llm LLM, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{llm: llm, logger: logger, fetcher: NewFetcher()}
}

// WithFetcher replaces the job posting fetcher.
func (g *Gateway) WithFetcher(f *Fetcher) *Gateway {
	g.fetcher = f
	return g
}

// Call sends prompt to the model. With opts.JSON the reply must be a JSON
// object, optionally inside a Markdown code fence.
func (g *Gateway) Call(ctx context.Context, prompt string, opts CallOptions) (Response, error) {
	return g.call(ctx, "call", prompt, opts)
}

func (g *Gateway) call(ctx context.Context, task, prompt string, opts CallOptions) (Response, error) {
	if g == nil || g.llm == nil {
		return Response{}, failed(task, errors.New("no model configured"))
	}

	start := time.Now()
	text, err := g.llm.Complete(ctx, prompt, CompleteOptions{
		JSON:   opts.JSON,
		System: systemPrompt,
	})
	if err != nil {
		g.logger.Warn("model call failed", "task", task, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Response{}, failed(task, err)
	}
	g.logger.Debug("model call completed", "task", task, "json", opts.JSON, "duration_ms", time.Since(start).Milliseconds())

	if !opts.JSON {
		if strings.TrimSpace(text) == "" {
			return Response{}, failed(task, errors.New("empty completion"))
		}
		return Response{Text: text}, nil
	}

	raw, obj, err := parseObject(text)
	if err != nil {
		g.logger.Warn("model returned malformed JSON", "task", task, "error", err)
		return Response{}, failed(task, err)
	}
	return Response{Text: text, JSON: obj, Raw: raw}, nil
}

const systemPrompt = "You are an expert career coach helping a candidate prepare for a job interview. " +
	"Be specific, concise and factual. When asked for JSON, reply with a single JSON object and nothing else."

// parseObject strips an optional code fence and requires a JSON object.
func parseObject(text string) (json.RawMessage, map[string]interface{}, error) {
	clean := stripFence(text)
	if clean == "" {
		return nil, nil, errors.New("empty completion")
	}
	if !gjson.Valid(clean) {
		return nil, nil, fmt.Errorf("invalid JSON in completion")
	}
	if !gjson.Parse(clean).IsObject() {
		return nil, nil, fmt.Errorf("completion is not a JSON object")
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, nil, fmt.Errorf("failed to decode completion: %w", err)
	}
	return json.RawMessage(clean), obj, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
