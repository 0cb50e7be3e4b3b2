// Package qwen implements taskflow.Adapter for Alibaba's DashScope
// text-generation API, which wraps messages in {model, input, parameters}
// and toggles SSE with the X-DashScope-SSE header.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"
)

// BaseURL is the DashScope text-generation endpoint.
const BaseURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// Adapter implements taskflow.Adapter for DashScope (Qwen) models.
type Adapter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client

	costIn, costOut *float64
}

// New creates an adapter from a model config. cfg.BaseURL falls back to the
// DashScope endpoint when empty.
func New(cfg taskflow.ModelConfig, opts ...Option) *Adapter {
	a := &Adapter{
		apiKey:  cfg.APIKey,
		model:   cfg.ModelName,
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
		costIn:  cfg.CostPer1MInput,
		costOut: cfg.CostPer1MOutput,
	}
	if a.baseURL == "" {
		a.baseURL = BaseURL
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() string { return "qwen" }

// EstimateCost computes USD cost from per-million pricing.
func (a *Adapter) EstimateCost(promptTokens, completionTokens int) float64 {
	var cost float64
	if a.costIn != nil {
		cost += float64(promptTokens) / 1_000_000 * *a.costIn
	}
	if a.costOut != nil {
		cost += float64(completionTokens) / 1_000_000 * *a.costOut
	}
	return cost
}

// Complete sends a unary request with SSE disabled.
func (a *Adapter) Complete(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions) (taskflow.CompletionResponse, error) {
	resp, err := a.sendHTTP(ctx, a.buildBody(messages, opts, false), false)
	if err != nil {
		return taskflow.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return taskflow.CompletionResponse{}, a.httpErr(resp)
	}

	var wire generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return taskflow.CompletionResponse{}, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("decode response: %v", err)}
	}
	return normalize(wire, a.model), nil
}

// Stream sends a request with SSE enabled and incremental output, forwarding
// deltas into ch. ch is closed before returning.
func (a *Adapter) Stream(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	resp, err := a.sendHTTP(ctx, a.buildBody(messages, opts, true), true)
	if err != nil {
		close(ch)
		return taskflow.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		close(ch)
		return taskflow.CompletionResponse{}, a.httpErr(resp)
	}

	return streamSSE(ctx, resp.Body, a.model, ch)
}

// Test probes the endpoint with a 10-token request and reports latency.
func (a *Adapter) Test(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := a.Complete(ctx, []taskflow.ChatMessage{taskflow.UserMessage("ping")}, taskflow.CompletionOptions{MaxTokens: 10})
	return time.Since(start), err
}

func (a *Adapter) buildBody(messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, stream bool) generationRequest {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, wireMessage{Role: m.Role, Content: m.Content})
	}
	return generationRequest{
		Model: a.model,
		Input: generationInput{Messages: wire},
		Parameters: generationParameters{
			ResultFormat:      "message",
			Temperature:       opts.Temperature,
			TopP:              opts.TopP,
			MaxTokens:         opts.MaxTokens,
			IncrementalOutput: stream,
		},
	}
}

func (a *Adapter) sendHTTP(ctx context.Context, body generationRequest, sse bool) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if sse {
		req.Header.Set("X-DashScope-SSE", "enable")
	} else {
		req.Header.Set("X-DashScope-SSE", "disable")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("send request: %v", err)}
	}
	return resp, nil
}

func (a *Adapter) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &taskflow.ErrHTTP{
		Provider:   a.Name(),
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: taskflow.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// normalize converts a DashScope response to the shared shape. The model name
// is echoed from config because DashScope omits it from responses.
func normalize(wire generationResponse, model string) taskflow.CompletionResponse {
	out := taskflow.CompletionResponse{
		ID:    wire.RequestID,
		Model: model,
	}
	for i, c := range wire.Output.Choices {
		out.Choices = append(out.Choices, taskflow.Choice{
			Index:        i,
			Message:      taskflow.ChatMessage{Role: c.Message.Role, Content: c.Message.Content},
			FinishReason: finishReason(c.FinishReason),
		})
	}
	if wire.Usage != nil {
		total := wire.Usage.TotalTokens
		if total == 0 {
			total = wire.Usage.InputTokens + wire.Usage.OutputTokens
		}
		out.Usage = &taskflow.Usage{
			PromptTokens:     wire.Usage.InputTokens,
			CompletionTokens: wire.Usage.OutputTokens,
			TotalTokens:      total,
		}
	}
	return out
}

// finishReason maps DashScope values onto the shared vocabulary. Streaming
// chunks carry the literal string "null" until the final one.
func finishReason(v string) string {
	switch v {
	case "null", "":
		return ""
	case "stop":
		return taskflow.FinishStop
	case "length":
		return taskflow.FinishLength
	default:
		return v
	}
}

// Compile-time interface check.
var _ taskflow.Adapter = (*Adapter)(nil)
