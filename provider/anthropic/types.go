// Package anthropic implements taskflow.Adapter for the Anthropic Messages
// API. System messages are pulled out into the request's dedicated system
// field and the remaining turns alternate user/assistant.
package anthropic

// messagesRequest is the Anthropic Messages API request body.
type messagesRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the unary Messages API response.
type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *wireUsage     `json:"usage,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// streamEvent covers the union of Anthropic SSE event payloads taskflow
// consumes: message_start, content_block_delta, message_delta, message_stop.
type streamEvent struct {
	Type    string            `json:"type"`
	Message *messagesResponse `json:"message,omitempty"`
	Delta   *eventDelta       `json:"delta,omitempty"`
	Usage   *wireUsage        `json:"usage,omitempty"`
}

type eventDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}
