package mockclient

import (
	"context"
	"fmt"
	"strings"

	"cgpt/internal/llm"
)

// Client is a deterministic llm.Client used for tests and scripted runs.
type Client struct {
	prefix string
}

// New returns a mock client that echoes the prompt it was given.
func New() *Client {
	return &Client{prefix: "MOCK"}
}

// Chat satisfies the llm.Client interface for chat mode.
func (c *Client) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	last := ""
	if n := len(req.Messages); n > 0 {
		last = strings.TrimSpace(req.Messages[n-1].Content)
	}
	return llm.ChatResponse{
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				Message:      llm.Message{Role: "assistant", Content: c.echo(last)},
				FinishReason: "stop",
			},
		},
		Usage: &llm.Usage{PromptTokens: 42, CompletionTokens: 7, TotalTokens: 49},
	}, nil
}

// Responses satisfies the llm.Client interface for responses mode.
func (c *Client) Responses(_ context.Context, req llm.ResponsesRequest) (llm.ResponsesResponse, error) {
	text := c.echo(strings.TrimSpace(req.Input))
	return llm.ResponsesResponse{
		Output: []llm.OutputItem{
			{
				Type:    "message",
				Content: []llm.OutputContent{{Type: "output_text", Text: text}},
			},
		},
		Usage: &llm.Usage{PromptTokens: 42, CompletionTokens: 7, TotalTokens: 49},
	}, nil
}

func (c *Client) echo(input string) string {
	if input == "" {
		return fmt.Sprintf("%s RESPONSE", c.prefix)
	}
	return fmt.Sprintf("%s RESPONSE: %s", c.prefix, input)
}
