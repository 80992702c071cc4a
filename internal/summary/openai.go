package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Typed failures of the external summarization call. The generator
// absorbs all of them into the deterministic fallback; the distinctions
// only pick the warning surfaced to the client.
var (
	ErrQuotaExceeded     = errors.New("summarization quota exceeded")
	ErrRateLimited       = errors.New("summarization rate limited")
	ErrInvalidCredential = errors.New("summarization credential invalid")
)

// Completer produces text for a prompt. Implemented by OpenAIClient in
// production and by fakes in tests.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient calls the OpenAI chat completions API
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// NewOpenAIClient creates a client with an explicit request timeout
func NewOpenAIClient(apiKey string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com/v1",
		model:      "gpt-3.5-turbo",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends the prompt and returns the generated text. HTTP and
// API failures are classified into the typed errors above.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyAPIError(resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("no summary generated")
	}
	return parsed.Choices[0].Message.Content, nil
}

// classifyAPIError maps OpenAI error responses to the typed failures
func classifyAPIError(status int, body []byte) error {
	var detail apiError
	_ = json.Unmarshal(body, &detail)
	code := detail.Error.Code
	msg := detail.Error.Message

	switch {
	case code == "insufficient_quota",
		status == http.StatusTooManyRequests &&
			(strings.Contains(msg, "quota") || strings.Contains(msg, "billing")):
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, msg)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case status == http.StatusUnauthorized, code == "invalid_api_key":
		return fmt.Errorf("%w: %s", ErrInvalidCredential, msg)
	default:
		return fmt.Errorf("completion API returned %d: %s", status, msg)
	}
}
