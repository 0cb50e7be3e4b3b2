package zhipu

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"
)

func TestSignToken(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	token := SignToken("key-id", "key-secret", at)

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d: %q", len(parts), token)
	}
	if parts[0] != "key-id" {
		t.Errorf("expected key id segment, got %q", parts[0])
	}
	if parts[1] != strconv.FormatInt(at.UnixMilli(), 10) {
		t.Errorf("expected millisecond timestamp, got %q", parts[1])
	}

	mac := hmac.New(sha256.New, []byte("key-secret"))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	want := hex.EncodeToString(mac.Sum(nil))
	if parts[2] != want {
		t.Errorf("signature mismatch: got %q, want %q", parts[2], want)
	}
}

func TestAdapter_Complete(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if got, want := r.Header.Get("Authorization"), SignToken("my-id", "my-secret", fixed); got != want {
			t.Errorf("auth token mismatch: got %q, want %q", got, want)
		}
		if r.Header.Get("Date") == "" {
			t.Error("expected Date header")
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "glm-4" {
			t.Errorf("expected model glm-4, got %s", req.Model)
		}

		json.NewEncoder(w).Encode(chatResponse{
			ID:    "glm-1",
			Model: "glm-4",
			Choices: []wireChoice{{
				Message:      &wireMessage{Role: "assistant", Content: "Hello!"},
				FinishReason: "stop",
			}},
			Usage: &wireUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
		})
	}))
	defer srv.Close()

	cfg := taskflow.ModelConfig{
		ID:        "test-glm",
		Provider:  "zhipu",
		ModelName: "glm-4",
		BaseURL:   srv.URL,
		APIKey:    "my-id.my-secret",
	}
	a := New(cfg, WithClock(func() time.Time { return fixed }))

	resp, err := a.Complete(context.Background(), []taskflow.ChatMessage{taskflow.UserMessage("Hi")}, taskflow.CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got := resp.Content(); got != "Hello!" {
		t.Errorf("expected content 'Hello!', got %q", got)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestAdapter_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("streaming request must set stream")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("" +
			`data: {"id":"glm-2","choices":[{"index":0,"delta":{"content":"Hel"}}]}` + "\n\n" +
			`data: {"id":"glm-2","choices":[{"index":0,"delta":{"content":"lo"}}]}` + "\n\n" +
			`data: {"id":"glm-2","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}` + "\n\n" +
			"data: [DONE]\n\n"))
	}))
	defer srv.Close()

	cfg := taskflow.ModelConfig{ModelName: "glm-4", BaseURL: srv.URL, APIKey: "id.secret"}
	a := New(cfg)

	ch := make(chan taskflow.StreamChunk, 16)
	resp, err := a.Stream(context.Background(), []taskflow.ChatMessage{taskflow.UserMessage("Hi")}, taskflow.CompletionOptions{}, ch)
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	var sb strings.Builder
	for c := range ch {
		sb.WriteString(c.Delta())
	}
	if sb.String() != "Hello" {
		t.Errorf("expected streamed 'Hello', got %q", sb.String())
	}
	if got := resp.Content(); got != "Hello" {
		t.Errorf("expected accumulated 'Hello', got %q", got)
	}
}
