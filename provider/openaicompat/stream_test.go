package openaicompat

import (
	"context"
	"strings"
	"testing"

	taskflow "github.com/taskflow-ai/taskflow"
)

// buildSSE constructs a mock SSE stream from data lines.
func buildSSE(lines ...string) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func collectStream(t *testing.T, sse string) (taskflow.CompletionResponse, []taskflow.StreamChunk) {
	t.Helper()
	ch := make(chan taskflow.StreamChunk, 32)
	resp, err := StreamSSE(context.Background(), strings.NewReader(sse), ch)
	if err != nil {
		t.Fatalf("StreamSSE returned error: %v", err)
	}
	var chunks []taskflow.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return resp, chunks
}

func TestStreamSSE_TextChunks(t *testing.T) {
	sse := buildSSE(
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"Hello"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":" world"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"!"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`,
		"[DONE]",
	)

	resp, chunks := collectStream(t, sse)

	if got := resp.Content(); got != "Hello world!" {
		t.Errorf("expected content 'Hello world!', got %q", got)
	}

	// The concatenation of chunk deltas must equal the final content.
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Delta())
	}
	if sb.String() != resp.Content() {
		t.Errorf("chunk deltas %q do not concatenate to content %q", sb.String(), resp.Content())
	}

	if resp.Usage == nil {
		t.Fatal("expected usage on final response")
	}
	if resp.Usage.PromptTokens != 5 {
		t.Errorf("expected 5 prompt tokens, got %d", resp.Usage.PromptTokens)
	}
	if resp.Usage.CompletionTokens != 3 {
		t.Errorf("expected 3 completion tokens, got %d", resp.Usage.CompletionTokens)
	}

	if len(resp.Choices) != 1 || resp.Choices[0].FinishReason != taskflow.FinishStop {
		t.Errorf("expected single choice with finish_reason stop, got %+v", resp.Choices)
	}
}

func TestStreamSSE_FinishReasonSurfaced(t *testing.T) {
	sse := buildSSE(
		`{"id":"chatcmpl-2","choices":[{"index":0,"delta":{"content":"partial"}}]}`,
		`{"id":"chatcmpl-2","choices":[{"index":0,"delta":{},"finish_reason":"length"}]}`,
		"[DONE]",
	)

	resp, chunks := collectStream(t, sse)

	if resp.Choices[0].FinishReason != taskflow.FinishLength {
		t.Errorf("expected finish_reason length, got %q", resp.Choices[0].FinishReason)
	}

	// The stop event itself must have been forwarded to the consumer.
	last := chunks[len(chunks)-1]
	if len(last.Choices) == 0 || last.Choices[0].FinishReason != taskflow.FinishLength {
		t.Errorf("expected last chunk to carry the finish reason, got %+v", last)
	}
}

func TestStreamSSE_EmptyStream(t *testing.T) {
	resp, chunks := collectStream(t, buildSSE("[DONE]"))

	if got := resp.Content(); got != "" {
		t.Errorf("expected empty content, got %q", got)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestStreamSSE_UsageOnlyChunk(t *testing.T) {
	// Some providers send usage in a separate chunk with no choices.
	sse := buildSSE(
		`{"id":"chatcmpl-4","choices":[{"index":0,"delta":{"role":"assistant","content":"Hi"}}]}`,
		`{"id":"chatcmpl-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"id":"chatcmpl-4","choices":[],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`,
		"[DONE]",
	)

	resp, chunks := collectStream(t, sse)

	if got := resp.Content(); got != "Hi" {
		t.Errorf("expected content 'Hi', got %q", got)
	}
	// Usage-only chunks are absorbed, not forwarded.
	if len(chunks) != 2 {
		t.Errorf("expected 2 forwarded chunks, got %d", len(chunks))
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 4 {
		t.Errorf("expected total 4 tokens, got %+v", resp.Usage)
	}
}

func TestStreamSSE_SkipsMalformedChunks(t *testing.T) {
	sse := buildSSE(
		`{"id":"chatcmpl-5","choices":[{"index":0,"delta":{"content":"Good"}}]}`,
		`this is not json`,
		`{"id":"chatcmpl-5","choices":[{"index":0,"delta":{"content":" day"}}]}`,
		"[DONE]",
	)

	resp, _ := collectStream(t, sse)

	// Should skip the malformed chunk and continue.
	if got := resp.Content(); got != "Good day" {
		t.Errorf("expected content 'Good day', got %q", got)
	}
}

func TestStreamSSE_NonDataLinesIgnored(t *testing.T) {
	// SSE streams can have comments, event types, retry directives, etc.
	raw := ": this is a comment\n" +
		"event: message\n" +
		"data: {\"id\":\"chatcmpl-6\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"OK\"}}]}\n\n" +
		"retry: 3000\n" +
		"data: [DONE]\n\n"

	resp, _ := collectStream(t, raw)

	if got := resp.Content(); got != "OK" {
		t.Errorf("expected content 'OK', got %q", got)
	}
}

func TestStreamSSE_ContextCancelled(t *testing.T) {
	sse := buildSSE(
		`{"id":"chatcmpl-7","choices":[{"index":0,"delta":{"content":"never delivered"}}]}`,
		"[DONE]",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered channel with no reader: the send must abort on ctx.
	ch := make(chan taskflow.StreamChunk)
	_, err := StreamSSE(ctx, strings.NewReader(sse), ch)
	if err == nil {
		t.Fatal("expected context error, got nil")
	}
}
