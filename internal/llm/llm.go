package llm

import "context"

// Message mirrors the OpenAI chat schema so that payloads can be sent
// verbatim.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload for chat mode (/chat/completions).
type ChatRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

// ChatChoice captures one response alternative from a completion API.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse is the chat-mode response envelope.
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// ResponsesRequest is the payload for responses mode (/responses). The
// prompt travels as a single input string.
type ResponsesRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

// OutputContent is one content fragment inside a responses-mode output
// item. Text fragments carry type "output_text".
type OutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// OutputItem is one entry of the responses-mode output list.
type OutputItem struct {
	Type    string          `json:"type"`
	Content []OutputContent `json:"content"`
}

// ResponsesResponse is the responses-mode envelope. Some servers also
// provide the aggregated output_text convenience field.
type ResponsesResponse struct {
	Output     []OutputItem `json:"output"`
	OutputText string       `json:"output_text,omitempty"`
	Usage      *Usage       `json:"usage,omitempty"`
}

// Usage contains token consumption metrics from the remote API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client is the transport capability: a provider reachable over both
// request shapes. Implementations own timeout policy; callers do not
// retry.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Responses(ctx context.Context, req ResponsesRequest) (ResponsesResponse, error)
}
