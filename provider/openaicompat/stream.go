package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	taskflow "github.com/taskflow-ai/taskflow"
)

// StreamSSE reads an SSE stream from body, forwards chunks to ch, and returns
// the fully accumulated response (content + finish reason + usage).
//
// The channel is closed when streaming completes. Callers should read from ch
// in a separate goroutine. The context cancels channel sends if the consumer
// is no longer interested.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	data: [DONE]\n
func StreamSSE(ctx context.Context, body io.Reader, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	// Increase buffer for large SSE payloads.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var fullContent strings.Builder
	var id, model, finishReason string
	var created int64
	var usage *taskflow.Usage

	for scanner.Scan() {
		line := scanner.Text()

		// SSE lines that carry data start with "data: ".
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		// End-of-stream sentinel.
		if data == "[DONE]" {
			break
		}

		var wire chatResponse
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			// Skip malformed chunks.
			continue
		}

		if wire.ID != "" {
			id = wire.ID
		}
		if wire.Model != "" {
			model = wire.Model
		}
		if wire.Created != 0 {
			created = wire.Created
		}
		if wire.Usage != nil {
			usage = &taskflow.Usage{
				PromptTokens:     wire.Usage.PromptTokens,
				CompletionTokens: wire.Usage.CompletionTokens,
				TotalTokens:      wire.Usage.TotalTokens,
			}
		}

		if len(wire.Choices) == 0 {
			// Usage-only chunk (some providers send this).
			continue
		}

		chunk := taskflow.StreamChunk{ID: wire.ID, Model: wire.Model, Created: wire.Created}
		for _, c := range wire.Choices {
			choice := taskflow.StreamChoice{Index: c.Index, FinishReason: c.FinishReason}
			if c.Delta != nil {
				choice.Delta = taskflow.ChatMessage{Role: c.Delta.Role, Content: c.Delta.Content}
			}
			chunk.Choices = append(chunk.Choices, choice)
		}

		first := wire.Choices[0]
		if first.Delta != nil && first.Delta.Content != "" {
			fullContent.WriteString(first.Delta.Content)
		}
		if first.FinishReason != "" {
			finishReason = first.FinishReason
		}

		select {
		case ch <- chunk:
		case <-ctx.Done():
			return taskflow.CompletionResponse{}, ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return taskflow.CompletionResponse{}, err
	}

	if finishReason == "" {
		finishReason = taskflow.FinishStop
	}
	return taskflow.CompletionResponse{
		ID:      id,
		Model:   model,
		Created: created,
		Choices: []taskflow.Choice{{
			Message:      taskflow.AssistantMessage(fullContent.String()),
			FinishReason: finishReason,
		}},
		Usage: usage,
	}, nil
}
