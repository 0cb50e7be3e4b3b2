package baidu

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	taskflow "github.com/taskflow-ai/taskflow"
)

// streamSSE reads an ERNIE SSE stream, forwards deltas, and returns the
// accumulated response. The final chunk carries is_end plus total usage.
// ch is closed before returning.
func streamSSE(ctx context.Context, body io.Reader, model string, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var fullContent strings.Builder
	var id string
	var created int64
	var usage *taskflow.Usage

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var wire chatResponse
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			// Skip malformed payloads.
			continue
		}
		if wire.ErrorCode != 0 {
			return taskflow.CompletionResponse{}, &taskflow.ErrLLM{Provider: "baidu", Message: wire.ErrorMsg}
		}

		if wire.ID != "" {
			id = wire.ID
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
		fullContent.WriteString(wire.Result)

		chunk := taskflow.StreamChunk{
			ID:      id,
			Model:   model,
			Created: created,
			Choices: []taskflow.StreamChoice{{
				Delta: taskflow.ChatMessage{Role: taskflow.RoleAssistant, Content: wire.Result},
			}},
		}
		if wire.IsEnd {
			chunk.Choices[0].FinishReason = taskflow.FinishStop
		}
		select {
		case ch <- chunk:
		case <-ctx.Done():
			return taskflow.CompletionResponse{}, ctx.Err()
		}

		if wire.IsEnd {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return taskflow.CompletionResponse{}, err
	}

	return taskflow.CompletionResponse{
		ID:      id,
		Model:   model,
		Created: created,
		Choices: []taskflow.Choice{{
			Message:      taskflow.AssistantMessage(fullContent.String()),
			FinishReason: taskflow.FinishStop,
		}},
		Usage: usage,
	}, nil
}
