// Chat completion client for OpenAI-compatible endpoints
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/shared"
)

const defaultCompletionBaseURL = "https://api.openai.com/v1"

// chatMessage is the wire form of one completion message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the /chat/completions request payload.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatCompletionResponse is the subset of the response payload the pipeline reads.
type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// CompletionService implements [Completer] against an OpenAI-compatible chat
// completions endpoint.
//
// Constructed once per process and passed explicitly into each component that
// needs it; it holds no per-request state.
type CompletionService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// CompletionOption configures a CompletionService.
type CompletionOption func(*CompletionService)

// WithCompletionHTTPClient overrides the HTTP client.
func WithCompletionHTTPClient(c *http.Client) CompletionOption {
	return func(s *CompletionService) { s.httpClient = c }
}

// NewCompletionService creates a completion client.
//
// baseURL falls back to the public OpenAI endpoint; model is required.
func NewCompletionService(baseURL, apiKey, model string, opts ...CompletionOption) (*CompletionService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: completion api_key is required", shared.ErrMissingCredentials)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: completion model is required", shared.ErrInvalidConfig)
	}
	if baseURL == "" {
		baseURL = defaultCompletionBaseURL
	}

	s := &CompletionService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Complete sends one chat completion request and returns the first choice's text.
//
// The service is treated as a pure function with no determinism guarantees;
// structural parsing of the returned text is the caller's job. Failures are
// not retried here.
func (s *CompletionService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, turn := range req.Messages {
		role := turn.Role
		if role != models.RoleAssistant {
			role = models.RoleUser
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Content})
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Status: resp.StatusCode, Body: string(text)}
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", shared.ErrEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}
