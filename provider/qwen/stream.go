package qwen

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	taskflow "github.com/taskflow-ai/taskflow"
)

// streamSSE reads a DashScope SSE stream, forwards incremental deltas, and
// returns the accumulated response. Requests are sent with incremental_output
// so each chunk carries only new text. ch is closed before returning.
func streamSSE(ctx context.Context, body io.Reader, model string, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var fullContent strings.Builder
	var id, finish string
	var usage *taskflow.Usage

	for scanner.Scan() {
		line := scanner.Text()

		// DashScope emits "id:", "event:", and "data:" lines; only data
		// carries payload. Both "data:" and "data: " prefixes appear.
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var wire generationResponse
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			// Skip malformed payloads.
			continue
		}

		if wire.RequestID != "" {
			id = wire.RequestID
		}
		if wire.Usage != nil {
			total := wire.Usage.TotalTokens
			if total == 0 {
				total = wire.Usage.InputTokens + wire.Usage.OutputTokens
			}
			usage = &taskflow.Usage{
				PromptTokens:     wire.Usage.InputTokens,
				CompletionTokens: wire.Usage.OutputTokens,
				TotalTokens:      total,
			}
		}
		if len(wire.Output.Choices) == 0 {
			continue
		}

		c := wire.Output.Choices[0]
		reason := finishReason(c.FinishReason)
		if reason != "" {
			finish = reason
		}
		if c.Message.Content != "" {
			fullContent.WriteString(c.Message.Content)
		}

		chunk := taskflow.StreamChunk{
			ID:    id,
			Model: model,
			Choices: []taskflow.StreamChoice{{
				Delta:        taskflow.ChatMessage{Role: taskflow.RoleAssistant, Content: c.Message.Content},
				FinishReason: reason,
			}},
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

	if finish == "" {
		finish = taskflow.FinishStop
	}
	return taskflow.CompletionResponse{
		ID:    id,
		Model: model,
		Choices: []taskflow.Choice{{
			Message:      taskflow.AssistantMessage(fullContent.String()),
			FinishReason: finish,
		}},
		Usage: usage,
	}, nil
}
