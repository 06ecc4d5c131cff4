package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// OpenAIConfig configures OpenAIClient.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	MaxTries   uint
}

// OpenAIClient talks to an OpenAI-compatible chat completions and embeddings API.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	maxTries   uint
	httpClient *http.Client
	logger     *slog.Logger
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// NewOpenAIClient creates a client with defaults for unset fields.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		maxTries:   cfg.MaxTries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// WithHTTPClient replaces the HTTP client, for tests.
func (c *OpenAIClient) WithHTTPClient(hc *http.Client) *OpenAIClient {
	c.httpClient = hc
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends a single-turn chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
	}
	if opts.JSON {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}

	var resp chatResponse
	if err := c.postJSON(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("upstream returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one vector per input, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	var resp embeddingsResponse
	if err := c.postJSON(ctx, "/v1/embeddings", embeddingsRequest{Model: c.embedModel, Input: inputs}, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("embeddings missing index=%d (model=%s)", i, c.embedModel)
		}
	}
	return out, nil
}

// postJSON retries transport errors, 429 and 5xx with exponential backoff.
// Other statuses fail immediately.
func (c *OpenAIClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
			if isRetryableStatus(resp.StatusCode) {
				c.logger.Debug("retrying model request", "path", path, "status", resp.StatusCode)
				return nil, httpErr
			}
			return nil, backoff.Permanent(httpErr)
		}
		return raw, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	raw, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncateUTF8(s, n) + "..."
}
