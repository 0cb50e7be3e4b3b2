package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	taskflow "github.com/taskflow-ai/taskflow"
)

// streamEvents reads the Anthropic SSE event stream, forwards text deltas as
// StreamChunks, and returns the accumulated response.
//
// Event sequence: message_start carries the id and input token count,
// content_block_delta carries text fragments, message_delta carries the stop
// reason and output token count, message_stop ends the stream.
func streamEvents(ctx context.Context, body io.Reader, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var fullContent strings.Builder
	var id, model, stopReason string
	var usage taskflow.Usage

	for scanner.Scan() {
		line := scanner.Text()

		// Anthropic interleaves "event: <type>" lines; the payload is on the
		// data line and repeats the type, so event lines are skipped.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// Skip malformed payloads and keepalives.
			continue
		}

		switch ev.Type {
		case "message_start":
			if ev.Message != nil {
				id = ev.Message.ID
				model = ev.Message.Model
				if ev.Message.Usage != nil {
					usage.PromptTokens = ev.Message.Usage.InputTokens
				}
			}

		case "content_block_delta":
			if ev.Delta == nil || ev.Delta.Text == "" {
				continue
			}
			fullContent.WriteString(ev.Delta.Text)
			chunk := taskflow.StreamChunk{
				ID:    id,
				Model: model,
				Choices: []taskflow.StreamChoice{{
					Delta: taskflow.ChatMessage{Role: taskflow.RoleAssistant, Content: ev.Delta.Text},
				}},
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return taskflow.CompletionResponse{}, ctx.Err()
			}

		case "message_delta":
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				stopReason = ev.Delta.StopReason
			}
			if ev.Usage != nil {
				usage.CompletionTokens = ev.Usage.OutputTokens
			}

		case "message_stop":
			// Surface the stop event to the consumer before returning.
			chunk := taskflow.StreamChunk{
				ID:    id,
				Model: model,
				Choices: []taskflow.StreamChoice{{
					FinishReason: finishReason(stopReason),
				}},
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return taskflow.CompletionResponse{}, ctx.Err()
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return taskflow.CompletionResponse{}, err
	}

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return taskflow.CompletionResponse{
		ID:    id,
		Model: model,
		Choices: []taskflow.Choice{{
			Message:      taskflow.AssistantMessage(fullContent.String()),
			FinishReason: finishReason(stopReason),
		}},
		Usage: &usage,
	}, nil
}
