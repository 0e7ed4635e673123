package dispatch

import (
	"context"
	"fmt"
	"strings"

	"cgpt/internal/config"
	"cgpt/internal/llm"
)

// ParseError reports a response whose shape did not match the requested
// mode.
type ParseError struct {
	Mode   config.Mode
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected %s response: %s", e.Mode, e.Reason)
}

// ChatRequestFor wraps the prompt as a single-turn user message list.
func ChatRequestFor(prompt, model string) llm.ChatRequest {
	return llm.ChatRequest{
		Model:    model,
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	}
}

// ResponsesRequestFor wraps the prompt as a single input string.
func ResponsesRequestFor(prompt, model string) llm.ResponsesRequest {
	return llm.ResponsesRequest{Model: model, Input: prompt}
}

// Dispatch sends one prompt under the resolved mode and returns the
// extracted response text. The model is forwarded only when configured;
// otherwise the remote service applies its own default. Transport
// failures pass through untouched so the caller can classify them.
func Dispatch(ctx context.Context, eff config.Effective, prompt string, client llm.Client) (string, error) {
	switch eff.Mode {
	case config.ModeChat:
		resp, err := client.Chat(ctx, ChatRequestFor(prompt, eff.Model))
		if err != nil {
			return "", err
		}
		return chatText(resp)
	default:
		resp, err := client.Responses(ctx, ResponsesRequestFor(prompt, eff.Model))
		if err != nil {
			return "", err
		}
		return responsesText(resp)
	}
}

func chatText(resp llm.ChatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", &ParseError{Mode: config.ModeChat, Reason: "no choices in response"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &ParseError{Mode: config.ModeChat, Reason: "empty message content"}
	}
	return text, nil
}

func responsesText(resp llm.ResponsesResponse) (string, error) {
	if text := strings.TrimSpace(resp.OutputText); text != "" {
		return text, nil
	}
	for _, item := range resp.Output {
		for _, content := range item.Content {
			if content.Type != "output_text" {
				continue
			}
			if text := strings.TrimSpace(content.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", &ParseError{Mode: config.ModeResponses, Reason: "no output_text content"}
}
