package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"
)

const (
	// BaseURL is the production Anthropic API endpoint.
	BaseURL = "https://api.anthropic.com/v1"

	apiVersion = "2023-06-01"

	// The Messages API requires max_tokens; use a generous default when the
	// caller does not set one.
	defaultMaxTokens = 4096
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// Adapter implements taskflow.Adapter for the Anthropic Messages API.
type Adapter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client

	costIn, costOut *float64
}

// New creates an adapter from a model config. cfg.BaseURL falls back to the
// production endpoint when empty.
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
func (a *Adapter) Name() string { return "anthropic" }

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

// Complete sends a unary request to the Messages API.
func (a *Adapter) Complete(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions) (taskflow.CompletionResponse, error) {
	resp, err := a.sendHTTP(ctx, a.buildBody(messages, opts, false))
	if err != nil {
		return taskflow.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return taskflow.CompletionResponse{}, a.httpErr(resp)
	}

	var wire messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return taskflow.CompletionResponse{}, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("decode response: %v", err)}
	}
	return normalize(wire), nil
}

// Stream sends a streaming request and forwards delta events into ch. ch is
// closed before returning.
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

	return streamEvents(ctx, resp.Body, ch)
}

// Test probes the endpoint with a 10-token request and reports latency.
func (a *Adapter) Test(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := a.Complete(ctx, []taskflow.ChatMessage{taskflow.UserMessage("ping")}, taskflow.CompletionOptions{MaxTokens: 10})
	return time.Since(start), err
}

// buildBody converts shared messages to the Anthropic shape: leading system
// messages concatenate into the system field, the rest alternate
// user/assistant. Consecutive same-role turns are merged to satisfy the
// alternation requirement.
func (a *Adapter) buildBody(messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, stream bool) messagesRequest {
	var system []string
	var turns []wireMessage

	for _, m := range messages {
		if m.Role == taskflow.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := m.Role
		if role != taskflow.RoleAssistant {
			// Tool and any other roles map to user turns.
			role = taskflow.RoleUser
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Content += "\n\n" + m.Content
			continue
		}
		turns = append(turns, wireMessage{Role: role, Content: m.Content})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return messagesRequest{
		Model:       a.model,
		Messages:    turns,
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stream:      stream,
	}
}

func (a *Adapter) sendHTTP(ctx context.Context, body messagesRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

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

// normalize converts the Anthropic response to the shared shape.
func normalize(wire messagesResponse) taskflow.CompletionResponse {
	var text strings.Builder
	for _, block := range wire.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := taskflow.CompletionResponse{
		ID:    wire.ID,
		Model: wire.Model,
		Choices: []taskflow.Choice{{
			Message:      taskflow.AssistantMessage(text.String()),
			FinishReason: finishReason(wire.StopReason),
		}},
	}
	if wire.Usage != nil {
		out.Usage = &taskflow.Usage{
			PromptTokens:     wire.Usage.InputTokens,
			CompletionTokens: wire.Usage.OutputTokens,
			TotalTokens:      wire.Usage.InputTokens + wire.Usage.OutputTokens,
		}
	}
	return out
}

// finishReason maps Anthropic stop reasons onto the shared vocabulary.
func finishReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence", "":
		return taskflow.FinishStop
	case "max_tokens":
		return taskflow.FinishLength
	case "tool_use":
		return taskflow.FinishToolCalls
	default:
		return stopReason
	}
}

// Compile-time interface check.
var _ taskflow.Adapter = (*Adapter)(nil)
