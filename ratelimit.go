package taskflow

import (
	"context"
	"sync"
	"time"
)

// rateLimitAdapter wraps an Adapter with proactive rate limiting. Requests
// block until the sliding-window budget allows them to proceed.
type rateLimitAdapter struct {
	inner Adapter
	mu    sync.Mutex

	// RPM state: sliding window of request timestamps.
	rpm       int
	rpmWindow []time.Time

	// TPM state: sliding window of (timestamp, tokenCount) pairs.
	tpm       int
	tpmWindow []tpmEntry
}

type tpmEntry struct {
	at     time.Time
	tokens int
}

// RateLimitOption configures a rate-limited adapter.
type RateLimitOption func(*rateLimitAdapter)

// RPM sets the maximum requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitAdapter) { r.rpm = n }
}

// TPM sets the maximum tokens per minute (prompt + completion combined).
// Token counts are recorded from the response usage after each request, so
// this is a soft limit: the request that exceeds the budget completes, and
// subsequent requests block until the window slides.
func TPM(n int) RateLimitOption {
	return func(r *rateLimitAdapter) { r.tpm = n }
}

// WithRateLimit wraps a with proactive rate limiting. Compose freely:
//
//	adapter = taskflow.WithRateLimit(adapter, taskflow.RPM(60))
//	adapter = taskflow.WithRateLimit(adapter, taskflow.RPM(60), taskflow.TPM(100000))
func WithRateLimit(a Adapter, opts ...RateLimitOption) Adapter {
	r := &rateLimitAdapter{inner: a}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *rateLimitAdapter) Name() string { return r.inner.Name() }

func (r *rateLimitAdapter) EstimateCost(promptTokens, completionTokens int) float64 {
	return r.inner.EstimateCost(promptTokens, completionTokens)
}

func (r *rateLimitAdapter) Test(ctx context.Context) (time.Duration, error) {
	return r.inner.Test(ctx)
}

func (r *rateLimitAdapter) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return CompletionResponse{}, err
	}
	resp, err := r.inner.Complete(ctx, messages, opts)
	if err == nil {
		r.recordUsage(resp.Usage)
	}
	return resp, err
}

func (r *rateLimitAdapter) Stream(ctx context.Context, messages []ChatMessage, opts CompletionOptions, ch chan<- StreamChunk) (CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		close(ch)
		return CompletionResponse{}, err
	}
	resp, err := r.inner.Stream(ctx, messages, opts, ch)
	if err == nil {
		r.recordUsage(resp.Usage)
	}
	return resp, err
}

// wait blocks until both the RPM and TPM windows have room, or ctx is done.
func (r *rateLimitAdapter) wait(ctx context.Context) error {
	for {
		delay := r.tryAcquire()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire reserves a request slot if the budget allows and returns 0, or
// returns how long to wait before the window slides.
func (r *rateLimitAdapter) tryAcquire() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	// Slide both windows.
	for len(r.rpmWindow) > 0 && r.rpmWindow[0].Before(cutoff) {
		r.rpmWindow = r.rpmWindow[1:]
	}
	for len(r.tpmWindow) > 0 && r.tpmWindow[0].at.Before(cutoff) {
		r.tpmWindow = r.tpmWindow[1:]
	}

	if r.rpm > 0 && len(r.rpmWindow) >= r.rpm {
		return r.rpmWindow[0].Add(time.Minute).Sub(now)
	}
	if r.tpm > 0 {
		var used int
		for _, e := range r.tpmWindow {
			used += e.tokens
		}
		if used >= r.tpm && len(r.tpmWindow) > 0 {
			return r.tpmWindow[0].at.Add(time.Minute).Sub(now)
		}
	}

	r.rpmWindow = append(r.rpmWindow, now)
	return 0
}

// recordUsage appends the response token count to the TPM window.
func (r *rateLimitAdapter) recordUsage(u *Usage) {
	if u == nil || r.tpm == 0 {
		return
	}
	r.mu.Lock()
	r.tpmWindow = append(r.tpmWindow, tpmEntry{at: time.Now(), tokens: u.PromptTokens + u.CompletionTokens})
	r.mu.Unlock()
}

var _ Adapter = (*rateLimitAdapter)(nil)
