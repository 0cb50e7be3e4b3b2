package taskflow

import (
	"context"
	"testing"
	"time"
)

func TestRateLimit_PassthroughWithoutLimits(t *testing.T) {
	inner := &stubAdapter{name: "openai", reply: "hi", costPerCall: 0.5}
	a := WithRateLimit(inner)

	if a.Name() != "openai" {
		t.Errorf("Name = %q", a.Name())
	}
	if a.EstimateCost(1, 1) != 0.5 {
		t.Error("EstimateCost not delegated")
	}
	resp, err := a.Complete(context.Background(), []ChatMessage{UserMessage("x")}, CompletionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content() != "hi" {
		t.Errorf("content = %q", resp.Content())
	}
}

func TestRateLimit_RPMBlocksOverBudget(t *testing.T) {
	inner := &stubAdapter{name: "openai", reply: "ok"}
	a := WithRateLimit(inner, RPM(2))

	ctx := context.Background()
	for range 2 {
		if _, err := a.Complete(ctx, nil, CompletionOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	// Third request exceeds the window; it must block until ctx expires
	// rather than go through.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := a.Complete(short, nil, CompletionOptions{}); err == nil {
		t.Fatal("third request within the minute must block")
	}
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("inner calls = %d, want 2", n)
	}
}

func TestRateLimit_TPMSoftLimit(t *testing.T) {
	inner := &stubAdapter{name: "openai", reply: "ok",
		usage: &Usage{PromptTokens: 80, CompletionTokens: 40}}
	a := WithRateLimit(inner, TPM(100))

	ctx := context.Background()
	// First request goes through and overshoots the budget (120 > 100).
	if _, err := a.Complete(ctx, nil, CompletionOptions{}); err != nil {
		t.Fatal(err)
	}

	// The window is now saturated; the next request blocks.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := a.Complete(short, nil, CompletionOptions{}); err == nil {
		t.Fatal("request after token budget exhaustion must block")
	}
}

func TestRateLimit_StreamClosesChannelWhenBlocked(t *testing.T) {
	inner := &stubAdapter{name: "openai", chunks: []string{"x"}}
	a := WithRateLimit(inner, RPM(1))

	ctx := context.Background()
	ch1 := make(chan StreamChunk, 4)
	if _, err := a.Stream(ctx, nil, CompletionOptions{}, ch1); err != nil {
		t.Fatal(err)
	}

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	ch2 := make(chan StreamChunk, 4)
	if _, err := a.Stream(short, nil, CompletionOptions{}, ch2); err == nil {
		t.Fatal("second stream must be limited")
	}
	if _, open := <-ch2; open {
		t.Error("channel must be closed when the limiter rejects the stream")
	}
}
