package taskflow

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// CompletionRequest is the gateway's user-facing request shape.
type CompletionRequest struct {
	Messages       []ChatMessage   `json:"messages"`
	PreferredModel string          `json:"preferred_model,omitempty"`
	Strategy       RoutingStrategy `json:"strategy,omitempty"`
	SystemPrompt   string          `json:"system_prompt,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
}

// CompletionResult is the gateway's user-facing response: the normalized
// provider response plus routing, cost, and latency attribution.
type CompletionResult struct {
	Response  CompletionResponse `json:"response"`
	Model     ModelConfig        `json:"model"`
	Routing   RoutingDecision    `json:"routing"`
	CostUSD   float64            `json:"cost_usd"`
	LatencyMs int64              `json:"latency_ms"`
}

// TestResult is one adapter's latency probe outcome.
type TestResult struct {
	ModelID string        `json:"model_id"`
	Latency time.Duration `json:"latency"`
	Err     error         `json:"-"`
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets a structured logger. Defaults to a no-op logger.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithGatewayTracer sets a tracer for completion spans.
func WithGatewayTracer(t Tracer) GatewayOption {
	return func(g *Gateway) { g.tracer = t }
}

// WithMaxRetries sets the per-candidate retry budget (default 2).
func WithMaxRetries(n int) GatewayOption {
	return func(g *Gateway) { g.maxRetries = n }
}

// WithRetryDelay sets the base backoff delay (default 1s). Delays grow
// linearly: baseDelay × (attempt+1).
func WithRetryDelay(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.retryDelay = d }
}

// WithFallback toggles cascading to the next candidate after a candidate's
// retries are exhausted (default true).
func WithFallback(enabled bool) GatewayOption {
	return func(g *Gateway) { g.fallback = enabled }
}

// WithDefaultStrategy sets the routing strategy used when a request does not
// name one (default smart).
func WithDefaultStrategy(s RoutingStrategy) GatewayOption {
	return func(g *Gateway) { g.defaultStrategy = s }
}

// WithRouter replaces the default router (e.g. to install custom rules).
func WithRouter(r *Router) GatewayOption {
	return func(g *Gateway) { g.router = r }
}

// Gateway routes completion requests across registered models with retry and
// cascading fallback. It is safe for concurrent Complete/Stream calls;
// registry mutations are writer-exclusive and readers take a consistent
// snapshot at the start of each request.
type Gateway struct {
	mu       sync.RWMutex
	models   map[string]ModelConfig
	adapters map[string]Adapter

	router          *Router
	defaultStrategy RoutingStrategy
	maxRetries      int
	retryDelay      time.Duration
	fallback        bool
	logger          *slog.Logger
	tracer          Tracer
}

// NewGateway creates a Gateway with no models registered.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		models:          make(map[string]ModelConfig),
		adapters:        make(map[string]Adapter),
		router:          NewRouter(),
		defaultStrategy: RouteSmart,
		maxRetries:      2,
		retryDelay:      time.Second,
		fallback:        true,
		logger:          nopLogger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterModel adds or replaces a model and its adapter.
func (g *Gateway) RegisterModel(cfg ModelConfig, adapter Adapter) error {
	if cfg.ID == "" {
		return &ErrValidation{Field: "id", Message: "model config has empty id"}
	}
	if adapter == nil {
		return &ErrValidation{Field: "adapter", Message: "nil adapter for model " + cfg.ID}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.models[cfg.ID] = cfg
	g.adapters[cfg.ID] = adapter
	return nil
}

// RemoveModel deletes a model from the registry. In-flight requests keep
// using the snapshot they took at start.
func (g *Gateway) RemoveModel(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.models, id)
	delete(g.adapters, id)
}

// SetEnabled flips a model's enabled flag.
func (g *Gateway) SetEnabled(id string, enabled bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cfg, ok := g.models[id]
	if !ok {
		return &ErrValidation{Field: "id", Message: "unknown model " + id}
	}
	cfg.Enabled = enabled
	g.models[id] = cfg
	return nil
}

// EnabledModels returns the enabled models sorted by priority ascending,
// with ID as the tie-break.
func (g *Gateway) EnabledModels() []ModelConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabledLocked()
}

func (g *Gateway) enabledLocked() []ModelConfig {
	out := make([]ModelConfig, 0, len(g.models))
	for _, m := range g.models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// snapshot returns the enabled models and a copy of the adapter map, taken
// under one read lock so a request sees a consistent registry.
func (g *Gateway) snapshot() ([]ModelConfig, map[string]Adapter) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	enabled := g.enabledLocked()
	adapters := make(map[string]Adapter, len(g.adapters))
	for id, a := range g.adapters {
		adapters[id] = a
	}
	return enabled, adapters
}

// buildMessages prepends the request's system prompt, if any.
func buildMessages(req CompletionRequest) []ChatMessage {
	if req.SystemPrompt == "" {
		return req.Messages
	}
	msgs := make([]ChatMessage, 0, len(req.Messages)+1)
	msgs = append(msgs, SystemMessage(req.SystemPrompt))
	return append(msgs, req.Messages...)
}

// Complete routes the request, then walks the candidate list: each candidate
// gets up to maxRetries+1 attempts with linear backoff; when a candidate's
// retries are exhausted (or it fails with a non-retryable provider error such
// as bad auth) and fallback is on, the next candidate is tried. If every
// candidate fails the last error is wrapped in ErrExhausted.
func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	start := time.Now()

	var span Span
	if g.tracer != nil {
		ctx, span = g.tracer.Start(ctx, "gateway.complete",
			StringAttr("strategy", string(g.strategyFor(req))))
		defer span.End()
	}

	enabled, adapters := g.snapshot()
	decision, err := g.router.Select(req.Messages, enabled, req.PreferredModel, g.strategyFor(req))
	if err != nil {
		return nil, err
	}

	messages := buildMessages(req)
	var lastErr error
	tried := make([]string, 0, len(decision.Candidates))

	for ci, candidate := range decision.Candidates {
		adapter, ok := adapters[candidate.ID]
		if !ok {
			continue
		}
		tried = append(tried, candidate.ID)
		opts := g.optsFor(req, candidate)

		resp, err := g.completeWithRetry(ctx, adapter, candidate, messages, opts)
		if err == nil {
			result := &CompletionResult{
				Response:  resp,
				Model:     candidate,
				Routing:   decision,
				LatencyMs: time.Since(start).Milliseconds(),
			}
			if resp.Usage != nil {
				result.CostUSD = adapter.EstimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			}
			if span != nil {
				span.SetAttr(StringAttr("model", candidate.ID), Float64Attr("cost_usd", result.CostUSD))
			}
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if !g.fallback {
			break
		}
		if ci < len(decision.Candidates)-1 {
			g.logger.Warn("candidate failed, cascading",
				"model", candidate.ID, "error", err)
		}
	}

	exhausted := &ErrExhausted{Candidates: tried, Last: lastErr}
	if span != nil {
		span.Error(exhausted)
	}
	g.logger.Error("all candidates exhausted", "candidates", tried, "error", lastErr)
	return nil, exhausted
}

// completeWithRetry runs one candidate's attempts. Auth errors and other
// non-retryable failures end the candidate immediately (the caller decides
// whether to cascade).
func (g *Gateway) completeWithRetry(ctx context.Context, adapter Adapter, candidate ModelConfig, messages []ChatMessage, opts CompletionOptions) (CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		resp, err := adapter.Complete(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		g.logger.Warn("retrying",
			"model", candidate.ID,
			"status", StatusOf(err),
			"attempt", attempt+1,
			"max_retries", g.maxRetries)
		if attempt < g.maxRetries {
			if err := g.backoff(ctx, attempt, lastErr); err != nil {
				return CompletionResponse{}, lastErr
			}
		}
	}
	return CompletionResponse{}, lastErr
}

// Stream selects a model the same way as Complete, but never cascades to
// another provider: emitted chunks must all come from one stream. Connect
// failures before the first chunk are retried within the same provider.
// ch is always closed before Stream returns.
func (g *Gateway) Stream(ctx context.Context, req CompletionRequest, ch chan<- StreamChunk) (*CompletionResult, error) {
	start := time.Now()

	enabled, adapters := g.snapshot()
	decision, err := g.router.Select(req.Messages, enabled, req.PreferredModel, g.strategyFor(req))
	if err != nil {
		close(ch)
		return nil, err
	}
	adapter, ok := adapters[decision.Model.ID]
	if !ok {
		close(ch)
		return nil, &ErrValidation{Field: "model", Message: "no adapter for model " + decision.Model.ID}
	}

	messages := buildMessages(req)
	opts := g.optsFor(req, decision.Model)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		mid := make(chan StreamChunk, 64)
		var (
			resp      CompletionResponse
			streamErr error
		)
		done := make(chan struct{})
		go func() {
			defer close(done)
			resp, streamErr = adapter.Stream(ctx, messages, opts, mid)
		}()

		var chunksSent bool
		for chunk := range mid {
			chunksSent = true
			ch <- chunk
		}
		<-done

		if streamErr == nil || chunksSent || !IsRetryable(streamErr) {
			close(ch)
			if streamErr != nil {
				return nil, streamErr
			}
			result := &CompletionResult{
				Response:  resp,
				Model:     decision.Model,
				Routing:   decision,
				LatencyMs: time.Since(start).Milliseconds(),
			}
			if resp.Usage != nil {
				result.CostUSD = adapter.EstimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			}
			return result, nil
		}

		lastErr = streamErr
		g.logger.Warn("stream connect failed, retrying same provider",
			"model", decision.Model.ID,
			"status", StatusOf(streamErr),
			"attempt", attempt+1)
		if attempt < g.maxRetries {
			if err := g.backoff(ctx, attempt, lastErr); err != nil {
				break
			}
		}
	}
	close(ch)
	return nil, lastErr
}

// TestAll probes every registered adapter in parallel. Failures are collected
// alongside successes rather than aborting the sweep.
func (g *Gateway) TestAll(ctx context.Context) []TestResult {
	g.mu.RLock()
	ids := make([]string, 0, len(g.adapters))
	adapters := make(map[string]Adapter, len(g.adapters))
	for id, a := range g.adapters {
		ids = append(ids, id)
		adapters[id] = a
	}
	g.mu.RUnlock()
	sort.Strings(ids)

	results := make([]TestResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			latency, err := adapters[id].Test(ctx)
			results[i] = TestResult{ModelID: id, Latency: latency, Err: err}
		}(i, id)
	}
	wg.Wait()
	return results
}

// backoff sleeps for retryDelay × (attempt+1), honoring both the context and
// any server-provided Retry-After floor.
func (g *Gateway) backoff(ctx context.Context, attempt int, err error) error {
	delay := g.retryDelay * time.Duration(attempt+1)
	if ra := RetryAfterOf(err); ra > delay {
		delay = ra
	}
	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// strategyFor resolves the routing strategy: request override, else default.
func (g *Gateway) strategyFor(req CompletionRequest) RoutingStrategy {
	if req.Strategy != "" {
		return req.Strategy
	}
	return g.defaultStrategy
}

// optsFor merges request generation parameters over the model's defaults.
func (g *Gateway) optsFor(req CompletionRequest, m ModelConfig) CompletionOptions {
	opts := CompletionOptions{
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
	}
	if req.Temperature != nil {
		opts.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}
	return opts
}
