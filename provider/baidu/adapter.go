// Package baidu implements taskflow.Adapter for Baidu's ERNIE (wenxinworkshop)
// API. Auth is a two-step OAuth client-credentials flow: the adapter exchanges
// its API key and secret for an access token, caches it until shortly before
// expiry, and appends it to the chat URL as a query parameter.
package baidu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"
)

const (
	// BaseURL is the wenxinworkshop chat endpoint root; the model name is
	// appended as the final path segment.
	BaseURL = "https://aip.baidubce.com/rpc/2.0/ai_custom/v1/wenxinworkshop/chat"

	// TokenURL is the OAuth client-credentials endpoint.
	TokenURL = "https://aip.baidubce.com/oauth/2.0/token"

	// Tokens refresh this long before their reported expiry.
	tokenSlack = 5 * time.Minute
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithTokenURL overrides the OAuth endpoint (tests).
func WithTokenURL(u string) Option {
	return func(a *Adapter) { a.tokenURL = u }
}

// Adapter implements taskflow.Adapter for ERNIE models.
type Adapter struct {
	clientID     string
	clientSecret string
	model        string
	baseURL      string
	tokenURL     string
	client       *http.Client

	costIn, costOut *float64

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates an adapter from a model config. cfg.APIKey holds the client ID
// and secret joined by a colon ("AK:SK").
func New(cfg taskflow.ModelConfig, opts ...Option) *Adapter {
	id, secret, _ := strings.Cut(cfg.APIKey, ":")
	a := &Adapter{
		clientID:     id,
		clientSecret: secret,
		model:        cfg.ModelName,
		baseURL:      cfg.BaseURL,
		tokenURL:     TokenURL,
		client:       &http.Client{},
		costIn:       cfg.CostPer1MInput,
		costOut:      cfg.CostPer1MOutput,
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
func (a *Adapter) Name() string { return "baidu" }

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
	// ERNIE reports API errors in a 200 body.
	if wire.ErrorCode != 0 {
		return taskflow.CompletionResponse{}, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("api error %d: %s", wire.ErrorCode, wire.ErrorMsg)}
	}
	return normalize(wire, a.model), nil
}

// Stream sends a streaming request, forwarding deltas into ch. ERNIE marks
// the last chunk with is_end instead of a [DONE] sentinel. ch is closed
// before returning.
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

	return streamSSE(ctx, resp.Body, a.model, ch)
}

// Test probes the endpoint with a 10-token request and reports latency.
func (a *Adapter) Test(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := a.Complete(ctx, []taskflow.ChatMessage{taskflow.UserMessage("ping")}, taskflow.CompletionOptions{MaxTokens: 10})
	return time.Since(start), err
}

// buildBody converts shared messages to the ERNIE shape. Leading system
// messages move to the dedicated system field; the rest must alternate, so
// consecutive same-role turns merge.
func (a *Adapter) buildBody(messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, stream bool) chatRequest {
	var system []string
	var turns []wireMessage
	for _, m := range messages {
		if m.Role == taskflow.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := m.Role
		if role != taskflow.RoleAssistant {
			role = taskflow.RoleUser
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Content += "\n\n" + m.Content
			continue
		}
		turns = append(turns, wireMessage{Role: role, Content: m.Content})
	}
	return chatRequest{
		Messages:    turns,
		System:      strings.Join(system, "\n\n"),
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stream:      stream,
		UserID:      "taskflow",
	}
}

func (a *Adapter) sendHTTP(ctx context.Context, body chatRequest) (*http.Response, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("marshal request: %v", err)}
	}

	chatURL := a.baseURL + "/" + a.model + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("send request: %v", err)}
	}
	return resp, nil
}

// token returns a cached access token, fetching a fresh one when the cache is
// empty or within tokenSlack of expiry.
func (a *Adapter) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry.Add(-tokenSlack)) {
		return a.accessToken, nil
	}

	q := url.Values{}
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", a.clientID)
	q.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("create token request: %v", err)}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("fetch token: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &taskflow.ErrHTTP{Provider: a.Name(), Status: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("decode token: %v", err)}
	}
	if tok.Error != "" {
		return "", &taskflow.ErrLLM{Provider: a.Name(), Message: fmt.Sprintf("token error: %s: %s", tok.Error, tok.ErrorDescription)}
	}

	a.accessToken = tok.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return a.accessToken, nil
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

// normalize converts an ERNIE response to the shared shape. ERNIE returns a
// single result string, not choices.
func normalize(wire chatResponse, model string) taskflow.CompletionResponse {
	reason := taskflow.FinishStop
	if wire.FinishReason == "length" {
		reason = taskflow.FinishLength
	}
	out := taskflow.CompletionResponse{
		ID:      wire.ID,
		Model:   model,
		Created: wire.Created,
		Choices: []taskflow.Choice{{
			Message:      taskflow.AssistantMessage(wire.Result),
			FinishReason: reason,
		}},
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
