// Package zhipu implements taskflow.Adapter for Zhipu's GLM API. The wire
// shape is OpenAI-like; what differs is auth, a short-lived signed token of
// the form "<id>.<timestamp>.<signature>" built with HMAC-SHA256 from an API
// key of the form "<id>.<secret>".
package zhipu

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"
	"github.com/taskflow-ai/taskflow/provider/openaicompat"
)

// BaseURL is the Zhipu GLM chat endpoint.
const BaseURL = "https://open.bigmodel.cn/api/paas/v4"

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// Adapter implements taskflow.Adapter for GLM models.
type Adapter struct {
	keyID     string
	keySecret string
	model     string
	baseURL   string
	client    *http.Client
	now       func() time.Time

	costIn, costOut *float64
}

// New creates an adapter from a model config. cfg.APIKey holds the key ID and
// secret joined by a dot ("id.secret").
func New(cfg taskflow.ModelConfig, opts ...Option) *Adapter {
	id, secret, _ := strings.Cut(cfg.APIKey, ".")
	a := &Adapter{
		keyID:     id,
		keySecret: secret,
		model:     cfg.ModelName,
		baseURL:   cfg.BaseURL,
		client:    &http.Client{},
		now:       time.Now,
		costIn:    cfg.CostPer1MInput,
		costOut:   cfg.CostPer1MOutput,
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
func (a *Adapter) Name() string { return "zhipu" }

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

// SignToken builds the auth token "<id>.<timestamp>.<signature>" where the
// signature is hex-encoded HMAC-SHA256 of "<id>.<timestamp>" keyed by the
// secret. The timestamp is Unix milliseconds.
func SignToken(keyID, keySecret string, at time.Time) string {
	ts := strconv.FormatInt(at.UnixMilli(), 10)
	payload := keyID + "." + ts

	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(payload))
	sig := hex.EncodeToString(mac.Sum(nil))

	return payload + "." + sig
}

// Complete sends a unary chat request.
func (a *Adapter) Complete(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions) (taskflow.CompletionResponse, error) {
	resp, err := a.sendHTTP(ctx, a.buildBody(messages, opts, false))
	if err != nil {
		return taskflow.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return taskflow.CompletionResponse{}, a.httpErr(resp)
	}

	var wire chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return taskflow.CompletionResponse{}, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("decode response: %v", err)}
	}
	return normalize(wire), nil
}

// Stream sends a streaming request; the GLM SSE format is OpenAI-shaped so
// parsing is delegated to openaicompat.StreamSSE. ch is closed before
// returning.
func (a *Adapter) Stream(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	resp, err := a.sendHTTP(ctx, a.buildBody(messages, opts, true))
	if err != nil {
		close(ch)
		return taskflow.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		close(ch)
		return taskflow.CompletionResponse{}, a.httpErr(resp)
	}

	return openaicompat.StreamSSE(ctx, resp.Body, ch)
}

// Test probes the endpoint with a 10-token request and reports latency.
func (a *Adapter) Test(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := a.Complete(ctx, []taskflow.ChatMessage{taskflow.UserMessage("ping")}, taskflow.CompletionOptions{MaxTokens: 10})
	return time.Since(start), err
}

func (a *Adapter) buildBody(messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, stream bool) chatRequest {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, wireMessage{Role: m.Role, Content: m.Content})
	}
	return chatRequest{
		Model:       a.model,
		Messages:    wire,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	}
}

func (a *Adapter) sendHTTP(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", SignToken(a.keyID, a.keySecret, a.now()))
	req.Header.Set("Date", a.now().UTC().Format(time.RFC3339))

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
