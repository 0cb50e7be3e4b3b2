package taskflow

import (
	"context"
	"time"
)

// --- Model registry types ---

// Capability is an advertised model capability used by smart routing.
type Capability string

const (
	CapChat        Capability = "chat"
	CapCode        Capability = "code"
	CapReasoning   Capability = "reasoning"
	CapVision      Capability = "vision"
	CapFunction    Capability = "function"
	CapLongContext Capability = "long_context"
)

// ModelConfig describes one registered model. Priority orders models within
// the enabled set (lower = preferred). Cost fields are per million tokens in
// USD; nil means unknown and sorts last under the cost strategy.
type ModelConfig struct {
	ID           string       `json:"id" toml:"id"`
	Provider     string       `json:"provider" toml:"provider"`
	ModelName    string       `json:"model_name" toml:"model_name"`
	BaseURL      string       `json:"base_url,omitempty" toml:"base_url"`
	APIKey       string       `json:"api_key,omitempty" toml:"api_key"`
	Enabled      bool         `json:"enabled" toml:"enabled"`
	Priority     int          `json:"priority" toml:"priority"`
	Temperature  *float64     `json:"temperature,omitempty" toml:"temperature"`
	MaxTokens    int          `json:"max_tokens,omitempty" toml:"max_tokens"`
	Capabilities []Capability `json:"capabilities,omitempty" toml:"capabilities"`

	CostPer1MInput  *float64 `json:"cost_per_1m_input,omitempty" toml:"cost_per_1m_input"`
	CostPer1MOutput *float64 `json:"cost_per_1m_output,omitempty" toml:"cost_per_1m_output"`
}

// HasCapability reports whether the model advertises cap.
func (m ModelConfig) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// EstimateCost computes the USD cost for the given token counts.
// Absent cost fields contribute 0.
func (m ModelConfig) EstimateCost(promptTokens, completionTokens int) float64 {
	var cost float64
	if m.CostPer1MInput != nil {
		cost += float64(promptTokens) / 1_000_000 * *m.CostPer1MInput
	}
	if m.CostPer1MOutput != nil {
		cost += float64(completionTokens) / 1_000_000 * *m.CostPer1MOutput
	}
	return cost
}

// --- Wire types ---

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is a single role/content pair.
type ChatMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// UserMessage builds a user-role message.
func UserMessage(text string) ChatMessage { return ChatMessage{Role: RoleUser, Content: text} }

// SystemMessage builds a system-role message.
func SystemMessage(text string) ChatMessage { return ChatMessage{Role: RoleSystem, Content: text} }

// AssistantMessage builds an assistant-role message.
func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: text}
}

// CompletionOptions are per-request generation parameters. Zero values mean
// "use the model's defaults".
type CompletionOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Finish reasons, normalized across providers.
const (
	FinishStop          = "stop"
	FinishLength        = "length"
	FinishToolCalls     = "tool_calls"
	FinishContentFilter = "content_filter"
)

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// CompletionResponse is the normalized unary response shape shared by all
// adapters, regardless of the provider's native wire format.
type CompletionResponse struct {
	ID      string  `json:"id"`
	Model   string  `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage  `json:"usage,omitempty"`
	Created int64   `json:"created"`
}

// Content returns the first choice's message content, or "".
func (r CompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// StreamChoice is a delta within a streaming chunk.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        ChatMessage `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// StreamChunk is one incremental event from a streaming completion. A chunk
// whose choice carries a FinishReason is the stop event.
type StreamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Created int64          `json:"created"`
}

// Delta returns the first choice's delta content, or "".
func (c StreamChunk) Delta() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// --- Adapter ---

// Adapter abstracts one provider-specific HTTP client. Implementations live
// under provider/ and all normalize to the shared response shapes above.
type Adapter interface {
	// Complete sends a unary request and returns the full response.
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (CompletionResponse, error)
	// Stream sends a streaming request, emitting delta chunks into ch in
	// provider order, then returns the final accumulated response. The
	// channel is closed before Stream returns, including on error.
	Stream(ctx context.Context, messages []ChatMessage, opts CompletionOptions, ch chan<- StreamChunk) (CompletionResponse, error)
	// Test probes the provider with a tiny (10-token) request and returns
	// the observed round-trip latency.
	Test(ctx context.Context) (time.Duration, error)
	// EstimateCost returns the USD cost for the given token counts.
	EstimateCost(promptTokens, completionTokens int) float64
	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string
}
