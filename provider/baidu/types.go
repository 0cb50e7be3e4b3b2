package baidu

// tokenResponse is the OAuth client-credentials response.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// chatRequest is the ERNIE chat request body.
type chatRequest struct {
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	UserID      string        `json:"user_id,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the ERNIE chat response. Streaming chunks use the same
// shape with IsEnd marking the last one. API errors arrive in a 200 body
// with ErrorCode set.
type chatResponse struct {
	ID           string     `json:"id"`
	Created      int64      `json:"created"`
	Result       string     `json:"result"`
	IsEnd        bool       `json:"is_end,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *wireUsage `json:"usage,omitempty"`

	ErrorCode int    `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
