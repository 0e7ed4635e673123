package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"cgpt/internal/llm"
	"cgpt/internal/logging"
)

// DefaultTimeout bounds a single exchange. There is no retry; one
// request either completes or fails within this window.
const DefaultTimeout = 300 * time.Second

// Client is a minimal HTTP wrapper around an OpenAI-compatible API,
// speaking both the responses and chat completion endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *log.Logger
}

// NewClient wires together the dependencies for API access. A zero
// timeout falls back to DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Chat executes a single chat-mode completion request.
func (c *Client) Chat(ctx context.Context, reqPayload llm.ChatRequest) (llm.ChatResponse, error) {
	var respPayload llm.ChatResponse
	c.logger.Printf("sending %d messages to %s", len(reqPayload.Messages), c.baseURL+"/chat/completions")
	err := c.post(ctx, "/chat/completions", reqPayload, &respPayload)
	return respPayload, err
}

// Responses executes a single responses-mode request.
func (c *Client) Responses(ctx context.Context, reqPayload llm.ResponsesRequest) (llm.ResponsesResponse, error) {
	var respPayload llm.ResponsesResponse
	c.logger.Printf("sending input (%d bytes) to %s", len(reqPayload.Input), c.baseURL+"/responses")
	err := c.post(ctx, "/responses", reqPayload, &respPayload)
	return respPayload, err
}

// errorEnvelope is the standard error body shape of OpenAI-compatible
// servers.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, reqPayload, respPayload any) error {
	payload, err := json.Marshal(reqPayload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &llm.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &llm.TransportError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		msg := remoteMessage(body)
		logging.ErrorLog("api error from %s: %d - %s", endpoint, resp.StatusCode, msg)
		return &llm.TransportError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, respPayload); err != nil {
		logging.ErrorLog("response parse error from %s: %v", endpoint, err)
		return &llm.TransportError{Err: fmt.Errorf("parse response: %w", err)}
	}
	logging.DevLog("openai: received %d response bytes from %s", len(body), endpoint)
	return nil
}

// remoteMessage extracts the human-readable message from an error body,
// falling back to the raw payload when the envelope does not match.
func remoteMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no error detail provided"
	}
	return msg
}
