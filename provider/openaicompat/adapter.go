package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"
)

// Default base URLs for the OpenAI-compatible providers taskflow knows about.
const (
	OpenAIBaseURL   = "https://api.openai.com/v1"
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	MoonshotBaseURL = "https://api.moonshot.cn/v1"
	SparkBaseURL    = "https://spark-api-open.xf-yun.com/v1"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithName overrides the provider name (default "openai").
func WithName(name string) Option {
	return func(a *Adapter) { a.name = name }
}

// WithHTTPClient replaces the HTTP client (e.g. to set a transport-level
// timeout or a test round-tripper).
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithLogger sets a structured logger for request-level debug output.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter implements taskflow.Adapter for OpenAI-compatible APIs. The
// /chat/completions path is appended to the configured base URL.
type Adapter struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	costIn, costOut *float64
}

// New creates an adapter from a model config. cfg.BaseURL falls back to the
// OpenAI endpoint when empty.
func New(cfg taskflow.ModelConfig, opts ...Option) *Adapter {
	a := &Adapter{
		name:    "openai",
		apiKey:  cfg.APIKey,
		model:   cfg.ModelName,
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
		costIn:  cfg.CostPer1MInput,
		costOut: cfg.CostPer1MOutput,
	}
	if a.baseURL == "" {
		a.baseURL = OpenAIBaseURL
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewDeepSeek creates an adapter preset for the DeepSeek endpoint.
func NewDeepSeek(cfg taskflow.ModelConfig, opts ...Option) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DeepSeekBaseURL
	}
	return New(cfg, append([]Option{WithName("deepseek")}, opts...)...)
}

// NewMoonshot creates an adapter preset for the Moonshot endpoint.
func NewMoonshot(cfg taskflow.ModelConfig, opts ...Option) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MoonshotBaseURL
	}
	return New(cfg, append([]Option{WithName("moonshot")}, opts...)...)
}

// NewSpark creates an adapter preset for the iFlytek Spark HTTP endpoint,
// which is OpenAI-shaped. The legacy WebSocket protocol is not supported.
func NewSpark(cfg taskflow.ModelConfig, opts ...Option) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SparkBaseURL
	}
	return New(cfg, append([]Option{WithName("spark")}, opts...)...)
}

// Name returns the provider name.
func (a *Adapter) Name() string { return a.name }

// EstimateCost computes USD cost from per-million pricing; absent fields
// contribute 0.
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

// Complete sends a unary chat request and normalizes the response.
func (a *Adapter) Complete(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions) (taskflow.CompletionResponse, error) {
	body := a.buildBody(messages, opts)

	resp, err := a.sendHTTP(ctx, body)
	if err != nil {
		return taskflow.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return taskflow.CompletionResponse{}, a.httpErr(resp)
	}

	var wire chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return taskflow.CompletionResponse{}, &taskflow.ErrLLM{Provider: a.name, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return normalize(wire), nil
}

// Stream sends a streaming request and forwards SSE chunks into ch, then
// returns the accumulated response. ch is closed before returning.
func (a *Adapter) Stream(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	body := a.buildBody(messages, opts)
	body.Stream = true
	body.StreamOptions = &streamOptions{IncludeUsage: true}

	resp, err := a.sendHTTP(ctx, body)
	if err != nil {
		close(ch)
		return taskflow.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		close(ch)
		return taskflow.CompletionResponse{}, a.httpErr(resp)
	}

	// StreamSSE closes ch when done.
	return StreamSSE(ctx, resp.Body, ch)
}

// Test probes the endpoint with a 10-token request and reports latency.
func (a *Adapter) Test(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := a.Complete(ctx, []taskflow.ChatMessage{taskflow.UserMessage("ping")}, taskflow.CompletionOptions{MaxTokens: 10})
	return time.Since(start), err
}

// buildBody assembles the wire request. System messages pass through
// verbatim in OpenAI format.
func (a *Adapter) buildBody(messages []taskflow.ChatMessage, opts taskflow.CompletionOptions) chatRequest {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		})
	}
	return chatRequest{
		Model:       a.model,
		Messages:    wire,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
	}
}

// sendHTTP marshals body and posts it to the chat completions endpoint.
func (a *Adapter) sendHTTP(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.name, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := a.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.name, Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.name, Message: fmt.Sprintf("send request: %v", err)}
	}
	return resp, nil
}

// httpErr reads the response body and returns an ErrHTTP for the gateway's
// retry and cascade classification.
func (a *Adapter) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &taskflow.ErrHTTP{
		Provider:   a.name,
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: taskflow.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// normalize converts the wire response to the shared taskflow shape.
func normalize(wire chatResponse) taskflow.CompletionResponse {
	out := taskflow.CompletionResponse{
		ID:      wire.ID,
		Model:   wire.Model,
		Created: wire.Created,
	}
	for _, c := range wire.Choices {
		choice := taskflow.Choice{Index: c.Index, FinishReason: c.FinishReason}
		if c.Message != nil {
			choice.Message = taskflow.ChatMessage{Role: c.Message.Role, Content: c.Message.Content}
		}
		out.Choices = append(out.Choices, choice)
	}
	if wire.Usage != nil {
		out.Usage = &taskflow.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}
	return out
}

// Compile-time interface check.
var _ taskflow.Adapter = (*Adapter)(nil)
