package qwen

// generationRequest is the DashScope text-generation request envelope.
type generationRequest struct {
	Model      string               `json:"model"`
	Input      generationInput      `json:"input"`
	Parameters generationParameters `json:"parameters"`
}

type generationInput struct {
	Messages []wireMessage `json:"messages"`
}

type generationParameters struct {
	// ResultFormat "message" returns chat-style choices instead of raw text.
	ResultFormat      string   `json:"result_format,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	IncrementalOutput bool     `json:"incremental_output,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// generationResponse is the DashScope response envelope. The same shape
// carries SSE chunks.
type generationResponse struct {
	RequestID string           `json:"request_id"`
	Output    generationOutput `json:"output"`
	Usage     *wireUsage       `json:"usage,omitempty"`
}

type generationOutput struct {
	Choices []wireChoice `json:"choices"`
}

type wireChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
